package cache

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the only forward-compatibility knob the cache
// understands. A stored version that doesn't match forces a full
// rebuild rather than a migration.
const SchemaVersion = "1"

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
    path          TEXT PRIMARY KEY,
    language      TEXT NOT NULL,
    content_hash  TEXT NOT NULL,
    mtime         INTEGER NOT NULL,
    schema_version TEXT NOT NULL
)`

const createSymbolsTable = `
CREATE TABLE IF NOT EXISTS symbols (
    symbol_id  TEXT PRIMARY KEY,
    path       TEXT NOT NULL,
    kind       TEXT NOT NULL,
    name       TEXT NOT NULL,
    line_start INTEGER NOT NULL,
    line_end   INTEGER NOT NULL,
    container  TEXT,
    FOREIGN KEY(path) REFERENCES files(path) ON DELETE CASCADE
)`

const createEdgesTable = `
CREATE TABLE IF NOT EXISTS edges (
    from_id  TEXT NOT NULL,
    to_id    TEXT NOT NULL,
    kind     TEXT NOT NULL,
    src_path TEXT NOT NULL,
    PRIMARY KEY(from_id, to_id, kind),
    FOREIGN KEY(src_path) REFERENCES files(path) ON DELETE CASCADE
)`

const createMetaTable = `
CREATE TABLE IF NOT EXISTS meta (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbols(path)`,
	`CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_id)`,
	`CREATE INDEX IF NOT EXISTS idx_edges_src_path ON edges(src_path)`,
}

// createSchema creates every table and index inside one transaction,
// then bootstraps the meta row recording the schema and tool version.
func createSchema(db *sql.DB, toolVersion string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	tables := []string{createFilesTable, createSymbolsTable, createEdgesTable, createMetaTable}
	for _, ddl := range tables {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("cache: create table: %w", err)
		}
	}
	for _, ddl := range indexes {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("cache: create index: %w", err)
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO meta(key, value) VALUES('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		SchemaVersion,
	); err != nil {
		return fmt.Errorf("cache: bootstrap schema_version: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO meta(key, value) VALUES('tool_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		toolVersion,
	); err != nil {
		return fmt.Errorf("cache: bootstrap tool_version: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO meta(key, value) VALUES('created_at', strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		 ON CONFLICT(key) DO NOTHING`,
	); err != nil {
		return fmt.Errorf("cache: bootstrap created_at: %w", err)
	}
	return tx.Commit()
}

// readSchemaVersion returns the version recorded in meta, or "" if the
// table doesn't exist yet (brand-new database file).
func readSchemaVersion(db *sql.DB) (string, error) {
	var exists int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='meta'`,
	).Scan(&exists); err != nil {
		return "", fmt.Errorf("cache: check meta table: %w", err)
	}
	if exists == 0 {
		return "", nil
	}
	var version string
	err := db.QueryRow(`SELECT value FROM meta WHERE key='schema_version'`).Scan(&version)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cache: read schema_version: %w", err)
	}
	return version, nil
}
