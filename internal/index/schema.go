// Package index provides a SQLite mirror of the include symbol tables with
// optional FTS5 content search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS folders (
	folder     TEXT PRIMARY KEY,
	generation TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS includes (
	folder   TEXT NOT NULL,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	kind     TEXT NOT NULL,
	file     TEXT NOT NULL,
	line     INTEGER NOT NULL DEFAULT 0,
	content  TEXT NOT NULL DEFAULT '',
	active   INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (folder, position)
);

CREATE TABLE IF NOT EXISTS include_files (
	folder   TEXT NOT NULL,
	position INTEGER NOT NULL,
	path     TEXT NOT NULL,
	PRIMARY KEY (folder, position)
);

CREATE INDEX IF NOT EXISTS idx_includes_name ON includes(name);
CREATE INDEX IF NOT EXISTS idx_includes_folder_kind ON includes(folder, kind);
CREATE INDEX IF NOT EXISTS idx_include_files_path ON include_files(path);
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
