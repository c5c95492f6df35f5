// Package store implements the durable transactional metadata store:
// files, chunks, symbols, and dependency edges, backed by SQLite with
// an FTS5 lexical index over chunk content. github.com/gofrs/flock
// guards the single-writer-process contract.
package store

import (
	"database/sql"
	"fmt"
)

const schemaVersion = "1"

const createFilesTable = `
CREATE TABLE files (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	path          TEXT NOT NULL UNIQUE,
	language      TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	size_bytes    INTEGER NOT NULL DEFAULT 0,
	last_modified INTEGER NOT NULL DEFAULT 0
)
`

const createChunksTable = `
CREATE TABLE chunks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id     INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	symbol_path TEXT NOT NULL,
	kind        TEXT NOT NULL,
	visibility  TEXT NOT NULL,
	line_start  INTEGER NOT NULL,
	line_end    INTEGER NOT NULL,
	content     TEXT NOT NULL,
	doc_comment TEXT NOT NULL DEFAULT '',
	token_count INTEGER NOT NULL DEFAULT 0,
	weight      REAL NOT NULL DEFAULT 0,
	vector_id   INTEGER
)
`

const createChunksFTSTable = `
CREATE VIRTUAL TABLE chunks_fts USING fts5(
	content,
	doc_comment,
	symbol_path,
	content = 'chunks',
	content_rowid = 'id',
	tokenize = "unicode61 separators '._:'"
)
`

const createSymbolsTable = `
CREATE TABLE symbols (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL,
	fqn      TEXT NOT NULL,
	kind     TEXT NOT NULL,
	file_id  INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	line     INTEGER NOT NULL,
	chunk_id INTEGER REFERENCES chunks(id) ON DELETE SET NULL
)
`

const createDependencyEdgesTable = `
CREATE TABLE dependency_edges (
	source INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	target INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	kind   TEXT NOT NULL,
	PRIMARY KEY (source, target, kind)
)
`

const createMetadataTable = `
CREATE TABLE store_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)
`

var indexStatements = []string{
	`CREATE INDEX idx_chunks_file_id ON chunks(file_id)`,
	`CREATE INDEX idx_chunks_symbol_path ON chunks(symbol_path)`,
	`CREATE INDEX idx_symbols_fqn ON symbols(fqn)`,
	`CREATE INDEX idx_symbols_name ON symbols(name)`,
	`CREATE INDEX idx_symbols_file_id ON symbols(file_id)`,
	`CREATE INDEX idx_dependency_edges_source ON dependency_edges(source)`,
	`CREATE INDEX idx_dependency_edges_target ON dependency_edges(target)`,
	`CREATE INDEX idx_chunks_vector_id ON chunks(vector_id)`,
}

var ftsTriggers = []string{
	`CREATE TRIGGER chunks_fts_insert AFTER INSERT ON chunks BEGIN
		INSERT INTO chunks_fts(rowid, content, doc_comment, symbol_path) VALUES (new.id, new.content, new.doc_comment, new.symbol_path);
	END`,
	`CREATE TRIGGER chunks_fts_delete AFTER DELETE ON chunks BEGIN
		INSERT INTO chunks_fts(chunks_fts, rowid, content, doc_comment, symbol_path) VALUES ('delete', old.id, old.content, old.doc_comment, old.symbol_path);
	END`,
	`CREATE TRIGGER chunks_fts_update AFTER UPDATE ON chunks BEGIN
		INSERT INTO chunks_fts(chunks_fts, rowid, content, doc_comment, symbol_path) VALUES ('delete', old.id, old.content, old.doc_comment, old.symbol_path);
		INSERT INTO chunks_fts(rowid, content, doc_comment, symbol_path) VALUES (new.id, new.content, new.doc_comment, new.symbol_path);
	END`,
}

// createSchema builds every table, index, and trigger inside one
// transaction; the FTS5 contentless-sync table and its triggers are
// schema objects like any other.
func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin schema tx: %w", err)
	}
	defer tx.Rollback()

	ddls := []string{
		createFilesTable,
		createChunksTable,
		createChunksFTSTable,
		createSymbolsTable,
		createDependencyEdgesTable,
		createMetadataTable,
	}
	for _, ddl := range ddls {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	for _, idx := range indexStatements {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("store: create index: %w", err)
		}
	}
	for _, trig := range ftsTriggers {
		if _, err := tx.Exec(trig); err != nil {
			return fmt.Errorf("store: create fts trigger: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO store_metadata (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		return fmt.Errorf("store: bootstrap metadata: %w", err)
	}

	return tx.Commit()
}

// migrateSchema upgrades a store written by an older binary to the
// current schema version. There is a single schema version so far, so
// the only work is stamping the version row; per-version migration
// steps slot in here as the schema evolves.
func migrateSchema(db *sql.DB, from int) error {
	if _, err := db.Exec(`UPDATE store_metadata SET value = ? WHERE key = 'schema_version'`, schemaVersion); err != nil {
		return fmt.Errorf("store: migrate schema from version %d: %w", from, err)
	}
	return nil
}

func getSchemaVersion(db *sql.DB) (string, error) {
	var exists int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='store_metadata'`).Scan(&exists); err != nil {
		return "", fmt.Errorf("store: check metadata table: %w", err)
	}
	if exists == 0 {
		return "0", nil
	}
	var version string
	err := db.QueryRow(`SELECT value FROM store_metadata WHERE key = 'schema_version'`).Scan(&version)
	if err == sql.ErrNoRows {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: read schema version: %w", err)
	}
	return version, nil
}
