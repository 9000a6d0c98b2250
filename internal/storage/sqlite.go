// Package storage provides the sqlite persistence layer for resolved
// enforcement records, offenders and the legislation reference table.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/harwood/breachdb/internal/common"
	"github.com/harwood/breachdb/internal/model"
)

// SQLiteStorage implements the service.Storage interface using SQLite.
type SQLiteStorage struct {
	db            *sql.DB
	offenderCache map[string]*model.OffenderRecord
	dbPath        string
	cacheMutex    sync.RWMutex
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections; a single one also
	// serializes the find-or-create write paths.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{
		db:            db,
		dbPath:        dbPath,
		offenderCache: make(map[string]*model.OffenderRecord),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// wrapConstraintError converts a sqlite uniqueness violation into the shared
// duplicate sentinel so callers can re-fetch-and-reuse.
func wrapConstraintError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", common.ErrDuplicateEntry, err)
	}
	return err
}

func (s *SQLiteStorage) cacheKey(normalizedName, postcode string) string {
	return normalizedName + "|" + postcode
}

func (s *SQLiteStorage) getCachedOffender(normalizedName, postcode string) *model.OffenderRecord {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()
	if record, ok := s.offenderCache[s.cacheKey(normalizedName, postcode)]; ok {
		copied := *record
		return &copied
	}
	return nil
}

func (s *SQLiteStorage) cacheOffender(record *model.OffenderRecord) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	copied := *record
	s.offenderCache[s.cacheKey(record.NormalizedName, record.Postcode)] = &copied
}

func (s *SQLiteStorage) invalidateOffender(normalizedName, postcode string) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	delete(s.offenderCache, s.cacheKey(normalizedName, postcode))
}
