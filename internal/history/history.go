// Package history provides the SQLite-backed document store: CRUD over
// generated documents, the bounded history cap, settings persistence, and
// JSON import/export.
package history

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// MaxDocuments caps the history; the oldest documents beyond the cap are
// evicted on save and on import.
const MaxDocuments = 50

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id        TEXT PRIMARY KEY,
	title     TEXT NOT NULL DEFAULT '',
	subject   TEXT NOT NULL DEFAULT 'Autre',
	color     TEXT NOT NULL DEFAULT '',
	font_size INTEGER NOT NULL DEFAULT 14,
	type      TEXT NOT NULL DEFAULT '',
	parent_id TEXT NOT NULL DEFAULT '',
	favorite  INTEGER NOT NULL DEFAULT 0,
	html      TEXT NOT NULL DEFAULT '',
	date      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_date ON documents(date);
CREATE INDEX IF NOT EXISTS idx_documents_parent ON documents(parent_id);

CREATE TABLE IF NOT EXISTS settings (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL DEFAULT '{}'
);
`

// Store wraps a sql.DB with document-history operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
