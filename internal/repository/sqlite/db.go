package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orihero/aish-sub002/internal/config"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database holding screening sessions and job board fixtures
type DB struct {
	db *sql.DB
}

// Open opens the database file and creates the schema
func Open(ctx context.Context, cfg config.SQLiteConfig) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &DB{db: db}
	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return d, nil
}

func (d *DB) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS vacancies (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		requirements_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS resumes (
		id TEXT PRIMARY KEY,
		candidate_id TEXT NOT NULL,
		parsed_data_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		candidate_id TEXT NOT NULL DEFAULT '',
		vacancy_id TEXT NOT NULL REFERENCES vacancies(id),
		resume_id TEXT NOT NULL REFERENCES resumes(id),
		status TEXT NOT NULL DEFAULT 'applied'
	);

	CREATE TABLE IF NOT EXISTS chat_sessions (
		id TEXT PRIMARY KEY,
		application_id TEXT NOT NULL UNIQUE,
		vacancy_id TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		status TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		score INTEGER,
		feedback TEXT NOT NULL DEFAULT '',
		evaluation_raw TEXT NOT NULL DEFAULT '',
		reject_reason TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_chat_sessions_vacancy ON chat_sessions(vacancy_id, updated_at);
	`
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}
