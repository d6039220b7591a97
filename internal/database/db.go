package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the main application database connection
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

	// Use WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

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

// Migrate creates the schema when missing. The statements are idempotent
// so the service can run them on every startup.
func (db *DB) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS weekly_analysis (
			symbol                 TEXT NOT NULL,
			week_start             TEXT NOT NULL,
			technical_score        REAL NOT NULL DEFAULT 0,
			technical_scored       INTEGER NOT NULL DEFAULT 0,
			backtest_score         REAL NOT NULL DEFAULT 0,
			backtest_scored        INTEGER NOT NULL DEFAULT 0,
			fundamental_score      REAL NOT NULL DEFAULT 0,
			fundamental_scored     INTEGER NOT NULL DEFAULT 0,
			final_score            REAL NOT NULL DEFAULT 0,
			rank                   INTEGER NOT NULL DEFAULT 0,
			is_active              INTEGER NOT NULL DEFAULT 0,
			is_manually_overridden INTEGER NOT NULL DEFAULT 0,
			opt_entry_hour         INTEGER NOT NULL DEFAULT 0,
			opt_entry_minute       INTEGER NOT NULL DEFAULT 0,
			opt_sl_percent         REAL NOT NULL DEFAULT 0,
			opt_tp_percent         REAL NOT NULL DEFAULT 0,
			bt_total_return        REAL NOT NULL DEFAULT 0,
			bt_win_rate            REAL NOT NULL DEFAULT 0,
			bt_profit_factor       REAL NOT NULL DEFAULT 0,
			bt_total_trades        INTEGER NOT NULL DEFAULT 0,
			bt_max_drawdown        REAL NOT NULL DEFAULT 0,
			bt_param_stability     REAL NOT NULL DEFAULT 0,
			created_at             TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (symbol, week_start)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_weekly_analysis_week
			ON weekly_analysis (week_start, final_score DESC)`,
		`CREATE TABLE IF NOT EXISTS param_history (
			symbol     TEXT NOT NULL,
			week_start TEXT NOT NULL,
			entry_hour INTEGER NOT NULL,
			sl_percent REAL NOT NULL,
			tp_percent REAL NOT NULL,
			PRIMARY KEY (symbol, week_start)
		)`,
		`CREATE TABLE IF NOT EXISTS fundamental_scores (
			symbol     TEXT NOT NULL,
			week_start TEXT NOT NULL,
			score      REAL NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (symbol, week_start)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}
