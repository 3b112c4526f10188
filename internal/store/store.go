// Package store persists cases, cached geocode results, and settings in a
// single local SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed persistence layer. Single-process, single
// writer; no long-lived locks are held between calls.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS case_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_number TEXT UNIQUE NOT NULL,
			examiner TEXT,
			investigator TEXT,
			agency TEXT,
			city_of_offense TEXT,
			state_of_offense TEXT,
			start_date TEXT,
			end_date TEXT,
			volume_size_gb REAL,
			offense_type TEXT,
			device_type TEXT,
			model TEXT,
			os TEXT,
			data_recovered TEXT,
			fpr_complete INTEGER,
			notes TEXT,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS geocache (
			location_key TEXT PRIMARY KEY,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			last_accessed TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
