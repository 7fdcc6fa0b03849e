// Package catalog provides a SQLite-backed cache of card tags and links for
// tag lookups and backlinks. The YAML card files stay the source of truth;
// the catalog is rebuilt from them by Sync and kept current by Watch.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS cards (
	id            TEXT PRIMARY KEY,
	title         TEXT NOT NULL DEFAULT '',
	type          TEXT NOT NULL DEFAULT '',
	checksum      TEXT NOT NULL DEFAULT '',
	sequence_next TEXT NOT NULL DEFAULT '',
	updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS card_tags (
	card_id TEXT NOT NULL,
	tag     TEXT NOT NULL,
	UNIQUE(card_id, tag)
);

CREATE TABLE IF NOT EXISTS card_links (
	source TEXT NOT NULL,
	target TEXT NOT NULL,
	UNIQUE(source, target)
);

CREATE INDEX IF NOT EXISTS idx_card_tags_tag ON card_tags(tag);
CREATE INDEX IF NOT EXISTS idx_card_links_target ON card_links(target);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
