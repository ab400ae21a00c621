// Package db provides the local SQLite database and its schema.
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
	// Publish ledger - append-only history of restore runs
	// Several rows per run: run_started, one per created record, then completed or failed
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS publish_ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			account TEXT NOT NULL,
			dry_run INTEGER NOT NULL DEFAULT 0,
			kind TEXT,
			name TEXT,
			group_name TEXT,
			source_id INTEGER,
			target_id INTEGER,
			payload TEXT,
			error TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_publish_run ON publish_ledger(run_id, id);
		CREATE INDEX IF NOT EXISTS idx_publish_account_ts ON publish_ledger(account, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create publish_ledger table: %w", err)
	}

	// A record is created at most once per run
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_publish_run_record
		ON publish_ledger(run_id, kind, source_id)
		WHERE event_type IN ('group_created', 'service_created');
	`)
	if err != nil {
		return fmt.Errorf("failed to create idx_publish_run_record index: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
