// Package db provides the SQLite connection and schema for growmond.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables
func initSchema(db *sql.DB) error {
	// Verdict ledger - append-only history of verdict transitions for
	// auditing and the status API.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT NOT NULL,
			growspace TEXT NOT NULL,
			condition TEXT NOT NULL,
			state TEXT NOT NULL,
			probability REAL,
			stale INTEGER NOT NULL DEFAULT 0,
			reasons TEXT,
			timestamp INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_verdict_growspace_ts ON verdict_ledger(growspace, condition, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create verdict_ledger table: %w", err)
	}

	// Closed light-cycle windows, one row per 24h evaluation.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS light_windows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			growspace TEXT NOT NULL,
			status TEXT NOT NULL,
			observed_on_secs INTEGER NOT NULL,
			expected_on_secs INTEGER NOT NULL,
			timestamp INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_light_windows_growspace_ts ON light_windows(growspace, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create light_windows table: %w", err)
	}

	// Engine state - generic JSON state store keyed by (kind, id), used
	// to carry verdict and light-cycle state across restarts.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS engine_state (
			kind TEXT NOT NULL,
			id TEXT NOT NULL,
			payload TEXT NOT NULL,
			version INTEGER DEFAULT 1,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (kind, id)
		);
		CREATE INDEX IF NOT EXISTS idx_engine_state_kind ON engine_state(kind);
	`)
	if err != nil {
		return fmt.Errorf("failed to create engine_state table: %w", err)
	}

	return nil
}
