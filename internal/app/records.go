// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"fmt"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/ports/primary"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// NotFoundQuery is the reply for a name query that matched nothing.
const NotFoundQuery = "Sorry, I couldn't find a puzzle for that query. Please try again.\nUsage: `!puzzle [query]`"

func recordToPuzzle(r *secondary.PuzzleRecord) puzzle.Puzzle {
	status := puzzle.Status(r.Status)
	if parsed, ok := puzzle.ParseStatus(r.Status); ok {
		status = parsed
	}
	return puzzle.Puzzle{
		ID:        r.ID,
		Name:      r.Name,
		Round:     r.RoundName,
		Status:    status,
		Answer:    r.Answer,
		Location:  r.Location,
		Comments:  r.Comments,
		Tags:      r.Tags,
		IsMeta:    r.IsMeta,
		ChannelID: r.ChannelID,
		PuzzleURI: r.PuzzleURI,
		DriveURI:  r.DriveURI,
	}
}

func recordsToPuzzles(records []*secondary.PuzzleRecord) []puzzle.Puzzle {
	out := make([]puzzle.Puzzle, len(records))
	for i, r := range records {
		out[i] = recordToPuzzle(r)
	}
	return out
}

// resolver turns a PuzzleRef into a current record.
type resolver struct {
	puzzles secondary.PuzzleRepository
}

func (r resolver) resolve(ctx context.Context, ref primary.PuzzleRef) (puzzle.Puzzle, error) {
	switch {
	case ref.ID != "":
		return r.byID(ctx, ref.ID)
	case ref.Query != "":
		if channelID, ok := puzzle.ChannelMention(ref.Query); ok {
			return r.byChannel(ctx, channelID)
		}
		records, err := r.puzzles.List(ctx, secondary.PuzzleFilters{})
		if err != nil {
			return puzzle.Puzzle{}, fmt.Errorf("failed to list puzzles: %w", err)
		}
		p, ok := puzzle.Match(recordsToPuzzles(records), ref.Query)
		if !ok {
			return puzzle.Puzzle{}, apperr.NotFound("find puzzle", "%s", NotFoundQuery)
		}
		return p, nil
	case ref.ChannelID != "":
		return r.byChannel(ctx, ref.ChannelID)
	default:
		return puzzle.Puzzle{}, apperr.New(apperr.KindInvalidInput, "find puzzle", "no puzzle given")
	}
}

func (r resolver) byID(ctx context.Context, id string) (puzzle.Puzzle, error) {
	record, err := r.puzzles.GetByID(ctx, id)
	if err != nil {
		return puzzle.Puzzle{}, err
	}
	return recordToPuzzle(record), nil
}

func (r resolver) byChannel(ctx context.Context, channelID string) (puzzle.Puzzle, error) {
	record, err := r.puzzles.GetByChannel(ctx, channelID)
	if err != nil {
		return puzzle.Puzzle{}, err
	}
	return recordToPuzzle(record), nil
}
