package db

import (
	"database/sql"
	"fmt"
)

// SeedFixtures populates an empty database with a small hunt for local runs.
func SeedFixtures(database *sql.DB) error {
	rounds := []string{"Library", "Museum", "Observatory"}
	for _, name := range rounds {
		if _, err := database.Exec("INSERT INTO round (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("seed rounds: %w", err)
		}
	}

	puzzles := []struct {
		name, round, status, loc string
		meta                     bool
	}{
		{"acrostic", "Library", "Critical", "Table 1", false},
		{"card catalog", "Library", "New", "", false},
		{"overdue", "Library", "Needs eyes", "", true},
		{"still life", "Museum", "Grind", "Table 2", false},
		{"restoration", "Museum", "WTF", "", false},
		{"red shift", "Observatory", "Under control", "Table 1", false},
	}
	for _, p := range puzzles {
		meta := 0
		if p.meta {
			meta = 1
		}
		if _, err := database.Exec(
			`INSERT INTO puzzle (name, round_id, puzzle_uri, status, xyzloc, ismeta)
			 SELECT ?, id, ?, ?, ?, ? FROM round WHERE name = ?`,
			p.name, "https://hunt.example/puzzles/"+p.name, p.status, p.loc, meta, p.round,
		); err != nil {
			return fmt.Errorf("seed puzzles: %w", err)
		}
	}

	if _, err := database.Exec("INSERT INTO tag (name) VALUES ('wordplay'), ('logic')"); err != nil {
		return fmt.Errorf("seed tags: %w", err)
	}
	if _, err := database.Exec(`INSERT INTO puzzle_tag (puzzle_id, tag_id)
		SELECT p.id, t.id FROM puzzle p, tag t WHERE p.name = 'acrostic'`); err != nil {
		return fmt.Errorf("seed puzzle tags: %w", err)
	}
	return nil
}
