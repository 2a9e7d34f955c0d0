// Package db provides the SQLite connection and schema for the command ledger.
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
	// Command ledger - append-only audit of every applied command.
	// Never read back into the light state.
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS command_ledger (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			timestamp INTEGER NOT NULL,
			source TEXT NOT NULL,
			command TEXT NOT NULL,
			kind TEXT NOT NULL,
			light_level INTEGER NOT NULL,
			hue INTEGER NOT NULL,
			saturation INTEGER NOT NULL,
			brightness INTEGER NOT NULL,
			adjusted_brightness INTEGER NOT NULL,
			color TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_command_ledger_ts ON command_ledger(timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create command_ledger table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
