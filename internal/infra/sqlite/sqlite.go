// Package sqlite provides the single local store for the tool crib:
// tool stock counters, the append-only transaction ledger, and the
// disposal ledger. One file, one writer path, no network.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const dbFileName = "borrowmate.db"

// timeFormat is the wall-clock layout stored in timestamp columns.
const timeFormat = "2006-01-02 15:04:05"

// DB wraps the SQLite handle and owns schema migration.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the store under dir and applies migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	path := filepath.Join(dir, dbFileName)
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single local writer; WAL keeps readers unblocked during mutations.
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA synchronous = NORMAL`,
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	db := &DB{db: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

// migrate applies all schema statements, one at a time.
func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
// tool_id references are deliberately not ON DELETE CASCADE: history is
// append-only and outlives deleted tools (orphans are read-joined best-effort).
func Migrations() []string {
	return []string{
		// Tool stock counters
		`CREATE TABLE IF NOT EXISTS tools (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT NOT NULL,
			code          TEXT UNIQUE NOT NULL,
			total_qty     INTEGER NOT NULL,
			available_qty INTEGER NOT NULL,
			image_ref     TEXT,
			CHECK (available_qty >= 0 AND available_qty <= total_qty)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tools_code ON tools(code)`,

		// Append-only movement ledger
		`CREATE TABLE IF NOT EXISTS transactions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			tool_id     INTEGER NOT NULL,
			action      TEXT NOT NULL,
			user        TEXT NOT NULL,
			worker_type TEXT NOT NULL DEFAULT 'metalworker',
			reason      TEXT,
			timestamp   TEXT NOT NULL DEFAULT (datetime('now', 'localtime')),
			FOREIGN KEY(tool_id) REFERENCES tools(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_tool ON transactions(tool_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user)`,

		// Disposal ledger — quantity-level detail beside the Dispose entry
		`CREATE TABLE IF NOT EXISTS disposals (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			tool_id   INTEGER NOT NULL,
			quantity  INTEGER NOT NULL,
			reason    TEXT,
			timestamp TEXT NOT NULL DEFAULT (datetime('now', 'localtime')),
			FOREIGN KEY(tool_id) REFERENCES tools(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_disposals_tool ON disposals(tool_id)`,
	}
}

// now returns the current wall-clock time in the stored layout.
func now() string {
	return time.Now().Format(timeFormat)
}

// parseTime decodes a stored timestamp, tolerating the bare layout and
// SQLite's own datetime() output (they are identical, but be explicit).
// A malformed value is logged and read as the zero time rather than failing
// the whole query: ledger reads stay available even over a damaged row.
func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeFormat, s, time.Local)
	if err != nil {
		log.Printf("[sqlite] malformed stored timestamp %q: %v", s, err)
		return time.Time{}
	}
	return t
}
