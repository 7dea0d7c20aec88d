// Package sqlstore_test contains integration tests for the record store.
//
// All tests load the schema through db.GetSchemaSQL() so they run against
// the same tables and views as production. Do not declare tables here.
package sqlstore_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/puzzbot/internal/db"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	testDB.SetMaxOpenConns(1)

	if _, err := testDB.Exec(db.GetSchemaSQL()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedRound inserts a round and returns its id.
func seedRound(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	res, err := db.Exec("INSERT INTO round (name) VALUES (?)", name)
	if err != nil {
		t.Fatalf("failed to seed round: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// seedPuzzle inserts a puzzle in the named round and returns its id.
func seedPuzzle(t *testing.T, db *sql.DB, name, round, status, loc, channelID string) int64 {
	t.Helper()
	var channel sql.NullString
	if channelID != "" {
		channel = sql.NullString{String: channelID, Valid: true}
	}
	res, err := db.Exec(
		`INSERT INTO puzzle (name, round_id, status, xyzloc, chat_channel_id)
		 SELECT ?, id, ?, ?, ? FROM round WHERE name = ?`,
		name, status, loc, channel, round,
	)
	if err != nil {
		t.Fatalf("failed to seed puzzle: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}
