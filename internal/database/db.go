// Package database provides the SQLite connection and schema bootstrap.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode for concurrent readers while a run is writing
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// One writer per run; keep the pool small
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrate creates the schema when it does not exist yet. Decimal amounts are
// stored as TEXT to preserve precision; timestamps as Unix seconds.
func (db *DB) Migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS holdings (
			symbol     TEXT PRIMARY KEY,
			quantity   TEXT NOT NULL,
			cost_basis TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prices (
			symbol     TEXT PRIMARY KEY,
			price      TEXT NOT NULL,
			source     TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS valuations (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at  INTEGER NOT NULL,
			total_value TEXT NOT NULL,
			breakdown   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_valuations_created_at ON valuations(created_at)`,
		`CREATE TABLE IF NOT EXISTS performance (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at     INTEGER NOT NULL,
			baseline_mode  TEXT NOT NULL,
			baseline_value TEXT NOT NULL,
			absolute_gain  TEXT NOT NULL,
			percent_return TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_performance_created_at ON performance(created_at)`,
	}

	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run schema statement: %w", err)
		}
	}

	return nil
}
