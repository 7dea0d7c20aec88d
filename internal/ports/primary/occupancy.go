package primary

import (
	"context"

	"github.com/example/puzzbot/internal/core/occupancy"
	"github.com/example/puzzbot/internal/core/puzzle"
)

// OccupancyService defines the primary port for the occupancy tracker.
type OccupancyService interface {
	// SetLocation binds a puzzle to a location; an empty location clears it.
	SetLocation(ctx context.Context, req SetLocationRequest) (*LocationResponse, error)

	// Join binds a puzzle to the table the member is connected to.
	Join(ctx context.Context, req JoinRequest) (*LocationResponse, error)

	// OnMembershipChanged reacts to a location's new occupant count.
	OnMembershipChanged(ctx context.Context, change MembershipChange)
}

// SetLocationRequest contains parameters for binding a location.
type SetLocationRequest struct {
	Puzzle   PuzzleRef
	Location string
}

// JoinRequest contains parameters for joining from a table.
type JoinRequest struct {
	Puzzle PuzzleRef
	UserID string
}

// LocationResponse contains the binding after the request.
type LocationResponse struct {
	Puzzle   puzzle.Puzzle
	Location string
	Previous string
}

// MembershipChange reports a location's occupant count after an event.
type MembershipChange struct {
	ChannelID string
	Location  string
	Category  string
	Occupants int
}

// ReportService defines the primary port for read-only views.
type ReportService interface {
	// Tables renders which puzzles are being worked where.
	Tables(ctx context.Context) (string, error)

	// Board returns the tables view as data.
	Board(ctx context.Context) (occupancy.Board, error)

	// List returns puzzles of round, or of every round when round is empty.
	// open drops solved puzzles.
	List(ctx context.Context, round string, open bool) ([]puzzle.Puzzle, error)

	// WhereIs renders the location of one puzzle.
	WhereIs(ctx context.Context, ref PuzzleRef) (string, error)

	// Hipri renders the attention-status puzzles.
	Hipri(ctx context.Context) (string, error)

	// Find resolves a puzzle for display.
	Find(ctx context.Context, ref PuzzleRef) (*puzzle.Puzzle, error)
}
