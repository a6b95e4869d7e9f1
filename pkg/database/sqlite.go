package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/storyline-app/storyline-api/pkg/config"
)

// NewSQLite opens the embedded store, applies pragmas and ensures the schema
// exists. SQLite serializes writers, so the pool stays at a single connection
// by default.
func NewSQLite(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(1 * time.Hour)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := seedDefaultStory(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func createSchema(db *sqlx.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS stories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			archived_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS lines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			story_id INTEGER NOT NULL REFERENCES stories(id),
			text TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_story_created ON lines(story_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_ip_created ON lines(ip, created_at)`,
		`CREATE TABLE IF NOT EXISTS story_renames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			story_id INTEGER NOT NULL REFERENCES stories(id),
			username TEXT NOT NULL DEFAULT 'anonymous',
			renamed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		// line_id is deliberately not a foreign key: flags may outlive their
		// line and may reference ids that never existed.
		`CREATE TABLE IF NOT EXISTS line_flags (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			line_id INTEGER NOT NULL,
			reason TEXT NOT NULL,
			flagged_by TEXT NOT NULL DEFAULT 'anonymous',
			flagged_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			resolved INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS admin_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			action TEXT NOT NULL,
			target TEXT NOT NULL DEFAULT '',
			admin_id TEXT NOT NULL DEFAULT 'unknown',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}

	return nil
}

// seedDefaultStory inserts the initial "Untitled" story so an active story
// always exists.
func seedDefaultStory(db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM stories`); err != nil {
		return fmt.Errorf("count stories: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO stories (name) VALUES (?)`, "Untitled"); err != nil {
		return fmt.Errorf("seed default story: %w", err)
	}

	return nil
}
