package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/model"
	"github.com/harwood/breachdb/internal/resolve"
)

// maxSimilarPool bounds the candidate set returned by FindSimilar; scoring
// cost is controlled here, not at the resolver.
const maxSimilarPool = 50

const offenderColumns = `id, name, normalized_name, postcode, business_type,
	total_cases, total_notices, total_fines, last_updated`

// FindExact retrieves the offender with the given normalized name and
// postcode. Returns (nil, nil) when there is none; an empty postcode never
// matches exactly, because exact identity requires both sides to carry one.
func (s *SQLiteStorage) FindExact(ctx context.Context, normalizedName, postcode string) (*model.OffenderRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if normalizedName == "" || postcode == "" {
		return nil, nil
	}

	if record := s.getCachedOffender(normalizedName, postcode); record != nil {
		return record, nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+offenderColumns+`
		FROM offenders
		WHERE normalized_name = ? AND postcode = ?
	`, normalizedName, postcode)

	record, err := scanOffender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find offender: %w", err)
	}

	s.cacheOffender(record)
	return record, nil
}

// FindSimilar returns the bounded pool of offenders whose normalized name
// similarity exceeds the threshold, best first. SQLite has no trigram
// index, so the similarity runs in Go over the offender table; the pool cap
// keeps the resolver's scoring cost bounded.
func (s *SQLiteStorage) FindSimilar(ctx context.Context, normalizedName string, threshold float64) ([]model.OffenderRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+offenderColumns+`
		FROM offenders
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query offenders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		record model.OffenderRecord
		score  float64
	}
	var pool []scored

	for rows.Next() {
		record, err := scanOffender(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offender: %w", err)
		}
		if score := resolve.NameSimilarity(normalizedName, record.NormalizedName); score > threshold {
			pool = append(pool, scored{record: *record, score: score})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offenders: %w", err)
	}

	sort.SliceStable(pool, func(i, j int) bool { return pool[i].score > pool[j].score })
	if len(pool) > maxSimilarPool {
		pool = pool[:maxSimilarPool]
	}

	records := make([]model.OffenderRecord, len(pool))
	for i, p := range pool {
		records[i] = p.record
	}
	return records, nil
}

// GetOffenderByID retrieves one offender.
func (s *SQLiteStorage) GetOffenderByID(ctx context.Context, id int64) (*model.OffenderRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+offenderColumns+`
		FROM offenders
		WHERE id = ?
	`, id)

	record, err := scanOffender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: offender %d", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offender: %w", err)
	}
	return record, nil
}

// CreateOffender inserts a new offender. A uniqueness violation on
// (normalized_name, postcode) surfaces as common.ErrDuplicateEntry so the
// caller can re-fetch and reuse the winner of the race.
func (s *SQLiteStorage) CreateOffender(ctx context.Context, offender *model.OffenderRecord) (*model.OffenderRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateOffender(offender); err != nil {
		return nil, err
	}

	if offender.LastUpdated.IsZero() {
		offender.LastUpdated = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO offenders (name, normalized_name, postcode, business_type,
			total_cases, total_notices, total_fines, last_updated)
		VALUES (?, ?, ?, ?, 0, 0, '0', ?)
	`, offender.Name, offender.NormalizedName, offender.Postcode,
		string(offender.BusinessType), offender.LastUpdated)
	if err != nil {
		return nil, wrapConstraintError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read offender id: %w", err)
	}

	created := *offender
	created.ID = id
	created.TotalFines = decimal.Zero
	s.cacheOffender(&created)
	return &created, nil
}

// SearchOffenders returns offenders whose name or normalized name contains
// the query string.
func (s *SQLiteStorage) SearchOffenders(ctx context.Context, query string, limit int) ([]model.OffenderRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+offenderColumns+`
		FROM offenders
		WHERE name LIKE '%' || ? || '%' OR normalized_name LIKE '%' || ? || '%'
		ORDER BY total_cases DESC, name
		LIMIT ?
	`, query, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search offenders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.OffenderRecord
	for rows.Next() {
		record, err := scanOffender(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offender: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// IncrementOffenderCase bumps the aggregate counters after a case is saved.
func (s *SQLiteStorage) IncrementOffenderCase(ctx context.Context, id int64, fine decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var totalFines string
	var normalizedName, postcode string
	err = tx.QueryRowContext(ctx, `
		SELECT total_fines, normalized_name, postcode FROM offenders WHERE id = ?
	`, id).Scan(&totalFines, &normalizedName, &postcode)
	if err != nil {
		return fmt.Errorf("failed to read offender counters: %w", err)
	}

	current, err := decimal.NewFromString(totalFines)
	if err != nil {
		return fmt.Errorf("corrupt total_fines for offender %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE offenders
		SET total_cases = total_cases + 1,
			total_fines = ?,
			last_updated = CURRENT_TIMESTAMP
		WHERE id = ?
	`, current.Add(fine).String(), id); err != nil {
		return fmt.Errorf("failed to update offender counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit counter update: %w", err)
	}

	s.invalidateOffender(normalizedName, postcode)
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOffender(row scanner) (*model.OffenderRecord, error) {
	var record model.OffenderRecord
	var businessType, totalFines string

	err := row.Scan(
		&record.ID,
		&record.Name,
		&record.NormalizedName,
		&record.Postcode,
		&businessType,
		&record.TotalCases,
		&record.TotalNotices,
		&totalFines,
		&record.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	record.BusinessType = model.BusinessType(businessType)
	record.TotalFines, err = decimal.NewFromString(totalFines)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable total_fines %q", common.ErrDatabaseCorrupted, totalFines)
	}
	return &record, nil
}
