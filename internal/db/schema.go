package db

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is recorded in schema_version after InitSchema.
const SchemaVersion = 1

// SchemaSQL is the local record store schema. Its puzzle_view and
// round_view expose the same columns as the hunt backend's MySQL views, so
// the repositories in internal/adapters/sqlstore run unchanged on either.
//
// This is the SINGLE SOURCE OF TRUTH for the local schema. Tests load it
// through GetSchemaSQL() rather than declaring their own tables.
const SchemaSQL = `
CREATE TABLE IF NOT EXISTS round (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'New',
	round_uri TEXT NOT NULL DEFAULT '',
	meta_id INTEGER,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS puzzle (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	round_id INTEGER NOT NULL,
	puzzle_uri TEXT NOT NULL DEFAULT '',
	drive_id TEXT,
	drive_uri TEXT,
	chat_channel_id TEXT,
	status TEXT NOT NULL DEFAULT 'New',
	answer TEXT NOT NULL DEFAULT '',
	xyzloc TEXT NOT NULL DEFAULT '',
	comments TEXT NOT NULL DEFAULT '',
	ismeta INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (round_id) REFERENCES round(id)
);

CREATE INDEX IF NOT EXISTS idx_puzzle_channel ON puzzle(chat_channel_id);
CREATE INDEX IF NOT EXISTS idx_puzzle_xyzloc ON puzzle(xyzloc);

CREATE TABLE IF NOT EXISTS tag (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS puzzle_tag (
	puzzle_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	PRIMARY KEY (puzzle_id, tag_id),
	FOREIGN KEY (puzzle_id) REFERENCES puzzle(id) ON DELETE CASCADE,
	FOREIGN KEY (tag_id) REFERENCES tag(id) ON DELETE CASCADE
);

CREATE VIEW IF NOT EXISTS puzzle_view AS
SELECT
	p.id,
	p.name,
	r.name AS roundname,
	p.puzzle_uri,
	p.drive_id,
	p.drive_uri,
	p.chat_channel_id,
	p.status,
	p.answer,
	p.xyzloc,
	p.comments,
	(SELECT group_concat(t.name, ',') FROM puzzle_tag pt JOIN tag t ON t.id = pt.tag_id WHERE pt.puzzle_id = p.id) AS tags,
	p.ismeta
FROM puzzle p
JOIN round r ON r.id = p.round_id;

CREATE VIEW IF NOT EXISTS round_view AS
SELECT id, name, status, round_uri, meta_id FROM round;

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
func GetSchemaSQL() string {
	return SchemaSQL
}

// InitSchema creates any missing tables and views and records the schema
// version. It is safe to run on every start.
func InitSchema(database *sql.DB) error {
	if _, err := database.Exec(SchemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	var current int
	if err := database.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than this binary (%d)", current, SchemaVersion)
	}
	if current < SchemaVersion {
		if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return nil
}
