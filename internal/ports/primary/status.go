// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which chat commands, hooks and the CLI
// drive the application.
package primary

import (
	"context"
	"time"

	"github.com/example/puzzbot/internal/core/puzzle"
)

// PuzzleRef identifies a puzzle by record id, name query, or workspace
// channel, checked in that order.
type PuzzleRef struct {
	ID        string
	ChannelID string
	Query     string
}

// Outcome tells applied transitions apart from benign no-ops.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoOp    Outcome = "no_op"
)

// StatusService defines the primary port for the status state machine.
type StatusService interface {
	// Mark moves a puzzle to a non-solved status.
	Mark(ctx context.Context, req MarkRequest) (*TransitionResponse, error)

	// Solve records an answer and archives the workspace. Privileged.
	Solve(ctx context.Context, req SolveRequest) (*TransitionResponse, error)

	// Unsolve clears the answer and moves the workspace back. Privileged.
	Unsolve(ctx context.Context, ref PuzzleRef) (*TransitionResponse, error)

	// Publish creates and announces the workspace for a new puzzle.
	Publish(ctx context.Context, ref PuzzleRef) (*TransitionResponse, error)

	// SetNote reads or replaces a puzzle's comments.
	SetNote(ctx context.Context, req NoteRequest) (*NoteResponse, error)
}

// MarkRequest contains parameters for a status change.
type MarkRequest struct {
	Puzzle PuzzleRef
	Status puzzle.Status
}

// SolveRequest contains parameters for solving a puzzle.
type SolveRequest struct {
	Puzzle PuzzleRef
	Answer string
}

// TransitionResponse contains the result of a transition.
type TransitionResponse struct {
	Outcome       Outcome
	Puzzle        puzzle.Puzzle
	Message       string
	RenameSkipped bool
	LastRenameAt  time.Time
}

// NoteRequest sets comments when Text is non-empty.
type NoteRequest struct {
	Puzzle PuzzleRef
	Text   string
}

// NoteResponse contains the note after the request.
type NoteResponse struct {
	Puzzle  puzzle.Puzzle
	Note    string
	Set     bool
	TooLong bool
}

// RoundService defines the primary port for round lifecycle.
type RoundService interface {
	// AnnounceRound ensures the round has an active group and broadcasts it.
	AnnounceRound(ctx context.Context, round string) error

	// CreateRound adds the round record and announces it. Privileged.
	CreateRound(ctx context.Context, round string) error

	// SolveRound marks a round's meta solved. Privileged.
	SolveRound(ctx context.Context, round string) error
}
