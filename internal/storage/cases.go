package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/model"
)

// SaveCase persists a resolved enforcement case and its legislation links
// in one transaction.
func (s *SQLiteStorage) SaveCase(ctx context.Context, c *model.EnforcementCase) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCase(c); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO cases (id, hash, offender_id, action_date, hearing_date,
			fine, costs, business_type, breach, source_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Hash, c.OffenderID,
		nullTime(c.ActionDate), nullTime(c.HearingDate),
		c.Fine.String(), c.Costs.String(), string(c.BusinessType),
		c.Breach, c.SourceURL, c.CreatedAt,
	); err != nil {
		return wrapConstraintError(err)
	}

	for _, ref := range c.Legislation {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO case_legislation (case_id, legislation_id, section_label)
			VALUES (?, ?, ?)
		`, c.ID, ref.ID, ref.SectionLabel); err != nil {
			return fmt.Errorf("failed to link legislation: %w", err)
		}
	}

	return tx.Commit()
}

// CaseExists reports whether a case with the given dedup hash has been
// ingested before.
func (s *SQLiteStorage) CaseExists(ctx context.Context, hash string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(hash, "hash"); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM cases WHERE hash = ?)
	`, hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check case hash: %w", err)
	}
	return exists, nil
}

// GetCasesByOffender returns an offender's cases, newest action first,
// with legislation references attached.
func (s *SQLiteStorage) GetCasesByOffender(ctx context.Context, offenderID int64) ([]model.EnforcementCase, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hash, offender_id, action_date, hearing_date,
			fine, costs, business_type, breach, source_url, created_at
		FROM cases
		WHERE offender_id = ?
		ORDER BY action_date DESC, created_at DESC
	`, offenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cases []model.EnforcementCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		cases = append(cases, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cases {
		if err := s.attachLegislation(ctx, &cases[i]); err != nil {
			return nil, err
		}
	}
	return cases, nil
}

func (s *SQLiteStorage) attachLegislation(ctx context.Context, c *model.EnforcementCase) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.title, l.year, l.number, l.type, l.created_at, cl.section_label
		FROM case_legislation cl
		JOIN legislation l ON l.id = cl.legislation_id
		WHERE cl.case_id = ?
		ORDER BY l.title
	`, c.ID)
	if err != nil {
		return fmt.Errorf("failed to query case legislation: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ref model.LegislationReference
		var year, number int
		var refType string
		if err := rows.Scan(&ref.ID, &ref.Title, &year, &number, &refType,
			&ref.CreatedAt, &ref.SectionLabel); err != nil {
			return fmt.Errorf("failed to scan case legislation: %w", err)
		}
		if year != 0 {
			ref.Year = &year
		}
		if number != 0 {
			ref.Number = &number
		}
		ref.Type = model.LegislationType(refType)
		c.Legislation = append(c.Legislation, ref)
	}
	return rows.Err()
}

func scanCase(row scanner) (*model.EnforcementCase, error) {
	var c model.EnforcementCase
	var actionDate, hearingDate sql.NullTime
	var fine, costs, businessType string
	var breach, sourceURL sql.NullString

	err := row.Scan(
		&c.ID,
		&c.Hash,
		&c.OffenderID,
		&actionDate,
		&hearingDate,
		&fine,
		&costs,
		&businessType,
		&breach,
		&sourceURL,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if actionDate.Valid {
		c.ActionDate = &actionDate.Time
	}
	if hearingDate.Valid {
		c.HearingDate = &hearingDate.Time
	}
	if c.Fine, err = decimal.NewFromString(fine); err != nil {
		return nil, fmt.Errorf("%w: unparseable fine %q", common.ErrDatabaseCorrupted, fine)
	}
	if c.Costs, err = decimal.NewFromString(costs); err != nil {
		return nil, fmt.Errorf("%w: unparseable costs %q", common.ErrDatabaseCorrupted, costs)
	}
	c.BusinessType = model.BusinessType(businessType)
	c.Breach = breach.String
	c.SourceURL = sourceURL.String
	return &c, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
