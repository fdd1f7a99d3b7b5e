// Package index keeps a SQLite copy of the parsed workspace: one row per
// document with its section, every node link and every diagnostic, plus
// optional FTS5 full-text search.
package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	section_id TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	peek       TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_section ON documents(section_id);

CREATE TABLE IF NOT EXISTS links (
	path      TEXT NOT NULL REFERENCES documents(path) ON DELETE CASCADE,
	seq       INTEGER NOT NULL,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	data      TEXT NOT NULL,
	PRIMARY KEY (path, seq)
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_id);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_id);

CREATE TABLE IF NOT EXISTS diagnostics (
	path     TEXT NOT NULL REFERENCES documents(path) ON DELETE CASCADE,
	seq      INTEGER NOT NULL,
	severity TEXT NOT NULL,
	code     TEXT NOT NULL,
	data     TEXT NOT NULL,
	PRIMARY KEY (path, seq)
);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
