// Package sqlstore implements the record store ports over database/sql.
// The queries read puzzle_view and round_view and use portable SQL, so the
// same repositories serve the local SQLite store and the hunt's MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// Rows that belong to no real hunt content.
const (
	mistakesRound = "mistakes"
	hiddenStatus  = "[hidden]"
)

const puzzleColumns = "id, name, roundname, puzzle_uri, drive_id, drive_uri, chat_channel_id, status, answer, xyzloc, comments, tags, ismeta"

// PuzzleRepository implements secondary.PuzzleRepository.
type PuzzleRepository struct {
	db *sql.DB
}

// NewPuzzleRepository creates a puzzle repository over db.
func NewPuzzleRepository(db *sql.DB) *PuzzleRepository {
	return &PuzzleRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPuzzle(row rowScanner) (*secondary.PuzzleRecord, error) {
	var (
		driveID, driveURI, channelID sql.NullString
		answer, loc, comments, tags  sql.NullString
		isMeta                       sql.NullBool
	)
	record := &secondary.PuzzleRecord{}
	err := row.Scan(&record.ID, &record.Name, &record.RoundName, &record.PuzzleURI,
		&driveID, &driveURI, &channelID, &record.Status, &answer, &loc, &comments, &tags, &isMeta)
	if err != nil {
		return nil, err
	}
	record.DriveID = driveID.String
	record.DriveURI = driveURI.String
	record.ChannelID = channelID.String
	record.Answer = answer.String
	record.Location = loc.String
	record.Comments = comments.String
	record.IsMeta = isMeta.Bool
	if tags.String != "" {
		for _, tag := range strings.Split(tags.String, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				record.Tags = append(record.Tags, tag)
			}
		}
	}
	return record, nil
}

// GetByID retrieves a puzzle by its record id.
func (r *PuzzleRepository) GetByID(ctx context.Context, id string) (*secondary.PuzzleRecord, error) {
	record, err := scanPuzzle(r.db.QueryRowContext(ctx,
		"SELECT "+puzzleColumns+" FROM puzzle_view WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get puzzle", "puzzle %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get puzzle: %w", err)
	}
	return record, nil
}

// GetByChannel retrieves the puzzle whose workspace channel is channelID.
func (r *PuzzleRepository) GetByChannel(ctx context.Context, channelID string) (*secondary.PuzzleRecord, error) {
	record, err := scanPuzzle(r.db.QueryRowContext(ctx,
		"SELECT "+puzzleColumns+" FROM puzzle_view WHERE chat_channel_id = ? LIMIT 1", channelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("get puzzle", "Error: Could not find a puzzle for channel <#%s>", channelID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get puzzle by channel: %w", err)
	}
	return record, nil
}

// List retrieves puzzles matching the given filters. Hidden puzzles and the
// mistakes round are never returned.
func (r *PuzzleRepository) List(ctx context.Context, filters secondary.PuzzleFilters) ([]*secondary.PuzzleRecord, error) {
	query := "SELECT " + puzzleColumns + " FROM puzzle_view WHERE roundname <> ? AND status <> ?"
	args := []any{mistakesRound, hiddenStatus}

	if filters.Round != "" {
		query += " AND roundname = ?"
		args = append(args, filters.Round)
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	if filters.Location != "" {
		query += " AND xyzloc = ?"
		args = append(args, filters.Location)
	}
	if filters.ExcludeSolved {
		query += " AND status <> 'Solved'"
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list puzzles: %w", err)
	}
	defer rows.Close()

	var puzzles []*secondary.PuzzleRecord
	for rows.Next() {
		record, err := scanPuzzle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan puzzle: %w", err)
		}
		puzzles = append(puzzles, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list puzzles: %w", err)
	}
	return puzzles, nil
}

// UpdateField sets one whitelisted column of a puzzle.
func (r *PuzzleRepository) UpdateField(ctx context.Context, id, field, value string) error {
	if !secondary.PuzzleFields[field] {
		return apperr.New(apperr.KindInvalidInput, "update puzzle", "unknown puzzle field %q", field)
	}
	// field is whitelisted above, so splicing it into the statement is safe.
	res, err := r.db.ExecContext(ctx, "UPDATE puzzle SET "+field+" = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("failed to update puzzle %s: %w", field, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("update puzzle", "puzzle %s not found", id)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *PuzzleRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
