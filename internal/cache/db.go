// Package cache is the local SQLite store: feed snapshots, composer
// drafts, reply notifications, and the monitor's bookkeeping. The comment
// forest itself is never persisted; it lives in memory per session.
package cache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite cache database.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite cache database and runs migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER NOT NULL,
			content_type TEXT NOT NULL,
			document_type TEXT,
			title TEXT,
			slug TEXT,
			abstract TEXT,
			authors TEXT,
			hub TEXT,
			score INTEGER DEFAULT 0,
			comment_count INTEGER DEFAULT 0,
			created_unix INTEGER,
			open_access INTEGER DEFAULT 0,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (id, content_type)
		)`,

		`CREATE TABLE IF NOT EXISTS feed_lists (
			view TEXT PRIMARY KEY,
			refs TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS drafts (
			document_id INTEGER NOT NULL,
			content_type TEXT NOT NULL,
			parent_key TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (document_id, content_type, parent_key)
		)`,

		`CREATE TABLE IF NOT EXISTS monitored_comments (
			comment_id INTEGER PRIMARY KEY,
			document_id INTEGER NOT NULL,
			content_type TEXT NOT NULL,
			known_children TEXT NOT NULL DEFAULT '[]',
			last_checked INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_monitored_last_checked ON monitored_comments(last_checked)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			comment_id INTEGER NOT NULL UNIQUE,
			parent_id INTEGER NOT NULL,
			document_id INTEGER,
			content_type TEXT,
			author TEXT,
			preview TEXT,
			created_at INTEGER NOT NULL,
			read INTEGER DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("executing migration: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
