package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harwood/breachdb/internal/model"
)

const legislationColumns = `id, title, year, number, type, created_at`

// FindLegislation looks up the canonical row by its identity key. Year and
// number are stored as 0 when unknown, which keeps the uniqueness constraint
// meaningful; a nil number is excluded from the comparison entirely so a
// fuller citation of the same statute still finds the earlier row.
func (s *SQLiteStorage) FindLegislation(ctx context.Context, title string, year, number *int) (*model.LegislationReference, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(title, "title"); err != nil {
		return nil, err
	}

	query := `SELECT ` + legislationColumns + ` FROM legislation WHERE title = ? AND year = ?`
	args := []any{title, yearValue(year)}
	if number != nil {
		query += ` AND (number = ? OR number = 0)`
		args = append(args, *number)
	}
	query += ` ORDER BY number DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, args...)
	ref, err := scanLegislation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find legislation: %w", err)
	}
	return ref, nil
}

// ListLegislation returns every canonical legislation row. The reference
// table stays small (hundreds of statutes at most), so the normalizer's
// approximate-match fallback scans it whole.
func (s *SQLiteStorage) ListLegislation(ctx context.Context) ([]model.LegislationReference, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+legislationColumns+` FROM legislation ORDER BY title, year
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list legislation: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []model.LegislationReference
	for rows.Next() {
		ref, err := scanLegislation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan legislation: %w", err)
		}
		refs = append(refs, *ref)
	}
	return refs, rows.Err()
}

// CreateLegislation inserts a new canonical row. A uniqueness violation on
// the identity key surfaces as common.ErrDuplicateEntry so the normalizer
// can re-query and reuse the winner.
func (s *SQLiteStorage) CreateLegislation(ctx context.Context, ref *model.LegislationReference) (*model.LegislationReference, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateLegislation(ref); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO legislation (title, year, number, type)
		VALUES (?, ?, ?, ?)
	`, ref.Title, yearValue(ref.Year), yearValue(ref.Number), string(ref.Type))
	if err != nil {
		return nil, wrapConstraintError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read legislation id: %w", err)
	}

	created := *ref
	created.ID = id
	created.SectionLabel = ""
	return &created, nil
}

func yearValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func scanLegislation(row scanner) (*model.LegislationReference, error) {
	var ref model.LegislationReference
	var year, number int
	var refType string

	err := row.Scan(&ref.ID, &ref.Title, &year, &number, &refType, &ref.CreatedAt)
	if err != nil {
		return nil, err
	}

	if year != 0 {
		ref.Year = &year
	}
	if number != 0 {
		ref.Number = &number
	}
	ref.Type = model.LegislationType(refType)
	return &ref, nil
}
