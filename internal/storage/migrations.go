package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				// Year and number use 0 for "unknown" so the uniqueness
				// constraint covers the identity key; sqlite treats NULLs
				// as distinct in UNIQUE indexes.
				`CREATE TABLE IF NOT EXISTS legislation (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					title TEXT NOT NULL,
					year INTEGER NOT NULL DEFAULT 0,
					number INTEGER NOT NULL DEFAULT 0,
					type TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(title, year, number)
				)`,

				`CREATE TABLE IF NOT EXISTS offenders (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT NOT NULL,
					normalized_name TEXT NOT NULL,
					postcode TEXT NOT NULL DEFAULT '',
					business_type TEXT NOT NULL DEFAULT 'individual',
					total_cases INTEGER NOT NULL DEFAULT 0,
					total_notices INTEGER NOT NULL DEFAULT 0,
					total_fines TEXT NOT NULL DEFAULT '0',
					last_updated DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE(normalized_name, postcode)
				)`,
				`CREATE INDEX idx_offenders_normalized ON offenders(normalized_name)`,

				`CREATE TABLE IF NOT EXISTS cases (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					offender_id INTEGER NOT NULL,
					action_date DATETIME,
					hearing_date DATETIME,
					fine TEXT NOT NULL DEFAULT '0',
					costs TEXT NOT NULL DEFAULT '0',
					business_type TEXT NOT NULL,
					breach TEXT,
					source_url TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (offender_id) REFERENCES offenders(id)
				)`,
				`CREATE INDEX idx_cases_offender ON cases(offender_id)`,
				`CREATE INDEX idx_cases_hash ON cases(hash)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Case to legislation link table",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS case_legislation (
					case_id TEXT NOT NULL,
					legislation_id INTEGER NOT NULL,
					section_label TEXT NOT NULL DEFAULT '',
					PRIMARY KEY (case_id, legislation_id, section_label),
					FOREIGN KEY (case_id) REFERENCES cases(id),
					FOREIGN KEY (legislation_id) REFERENCES legislation(id)
				)`,
				`CREATE INDEX idx_case_legislation_ref ON case_legislation(legislation_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_versions (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_versions table: %w", err)
	}

	current, err := s.currentSchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(
			`INSERT INTO schema_versions (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

func (s *SQLiteStorage) currentSchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM schema_versions`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}
