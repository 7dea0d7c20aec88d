// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives the record
// store and the chat platform.
package secondary

import (
	"context"
	"strings"
)

// PuzzleRepository defines the secondary port for puzzle records.
type PuzzleRepository interface {
	// GetByID retrieves a puzzle by its record id.
	GetByID(ctx context.Context, id string) (*PuzzleRecord, error)

	// GetByChannel retrieves the puzzle cross-referenced to a workspace channel.
	GetByChannel(ctx context.Context, channelID string) (*PuzzleRecord, error)

	// List retrieves puzzles matching the given filters.
	List(ctx context.Context, filters PuzzleFilters) ([]*PuzzleRecord, error)

	// UpdateField sets one field of a puzzle. Each call is an independent,
	// idempotent write.
	UpdateField(ctx context.Context, id, field, value string) error
}

// PuzzleRecord represents a puzzle as stored in the record store.
type PuzzleRecord struct {
	ID        string
	Name      string
	RoundName string
	PuzzleURI string
	DriveID   string
	DriveURI  string
	ChannelID string
	Status    string
	Answer    string
	Location  string // xyzloc
	Comments  string
	Tags      []string
	IsMeta    bool
}

// PuzzleFilters contains filter options for querying puzzles.
type PuzzleFilters struct {
	Round         string
	Status        string
	Location      string
	ExcludeSolved bool
}

// RoundRepository defines the secondary port for round records.
type RoundRepository interface {
	// GetByName retrieves a round by its exact name.
	GetByName(ctx context.Context, name string) (*RoundRecord, error)

	// List retrieves all rounds.
	List(ctx context.Context) ([]*RoundRecord, error)

	// Create adds a round.
	Create(ctx context.Context, name string) error

	// UpdateField sets one field of a round.
	UpdateField(ctx context.Context, id, field, value string) error
}

// RoundRecord represents a round as stored in the record store.
type RoundRecord struct {
	ID       string
	Name     string
	Status   string
	RoundURI string
}

// Solved reports whether the round's meta has been solved. Older hunts mark
// it with a "#solved" fragment on the round URI instead of the status.
func (r RoundRecord) Solved() bool {
	return r.Status == "Solved" || strings.HasSuffix(r.RoundURI, "#solved")
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Puzzle fields that may be written through UpdateField.
var PuzzleFields = map[string]bool{
	"status":          true,
	"answer":          true,
	"xyzloc":          true,
	"comments":        true,
	"chat_channel_id": true,
	"drive_id":        true,
	"drive_uri":       true,
}

// Round fields that may be written through UpdateField.
var RoundFields = map[string]bool{
	"status":    true,
	"round_uri": true,
}
