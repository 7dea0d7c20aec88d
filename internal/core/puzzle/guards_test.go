package puzzle

import (
	"errors"
	"testing"

	"github.com/example/puzzbot/internal/apperr"
)

func TestCanMarkStatus(t *testing.T) {
	tests := []struct {
		name        string
		ctx         MarkContext
		wantAllowed bool
		wantKind    apperr.Kind
	}{
		{
			name:        "open transition",
			ctx:         MarkContext{PuzzleName: "acrostic", Current: StatusNew, Target: StatusCritical},
			wantAllowed: true,
		},
		{
			name:        "repeat mark is allowed",
			ctx:         MarkContext{PuzzleName: "acrostic", Current: StatusCritical, Target: StatusCritical},
			wantAllowed: true,
		},
		{
			name:     "solved cannot be marked",
			ctx:      MarkContext{PuzzleName: "acrostic", Current: StatusSolved, Target: StatusGrind},
			wantKind: apperr.KindInvalidTransition,
		},
		{
			name:     "mark cannot solve",
			ctx:      MarkContext{PuzzleName: "acrostic", Current: StatusNew, Target: StatusSolved},
			wantKind: apperr.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanMarkStatus(tt.ctx)
			if result.Allowed != tt.wantAllowed {
				t.Fatalf("Allowed = %v, want %v", result.Allowed, tt.wantAllowed)
			}
			if !tt.wantAllowed && apperr.KindOf(result.Error()) != tt.wantKind {
				t.Errorf("kind = %q, want %q", apperr.KindOf(result.Error()), tt.wantKind)
			}
		})
	}
}

func TestCanSolve(t *testing.T) {
	tests := []struct {
		name        string
		ctx         SolveContext
		wantAllowed bool
		wantNoOp    bool
		wantErr     error
	}{
		{
			name:        "privileged with answer",
			ctx:         SolveContext{PuzzleName: "acrostic", Privileged: true, Answer: "foobar"},
			wantAllowed: true,
		},
		{
			name:    "unprivileged",
			ctx:     SolveContext{PuzzleName: "acrostic", Answer: "foobar"},
			wantErr: apperr.ErrForbidden,
		},
		{
			name:    "blank answer",
			ctx:     SolveContext{PuzzleName: "acrostic", Privileged: true, Answer: "   "},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:        "already archived is a no-op",
			ctx:         SolveContext{PuzzleName: "acrostic", Privileged: true, Answer: "FOOBAR", Archived: true},
			wantAllowed: true,
			wantNoOp:    true,
		},
		{
			name:        "recorded solve without workspace is a no-op",
			ctx:         SolveContext{PuzzleName: "acrostic", Privileged: true, Answer: " foobar", Recorded: StatusSolved, RecordedAnswer: "FOOBAR", NoWorkspace: true},
			wantAllowed: true,
			wantNoOp:    true,
		},
		{
			name:        "recorded solve with a new answer is applied",
			ctx:         SolveContext{PuzzleName: "acrostic", Privileged: true, Answer: "BARFOO", Recorded: StatusSolved, RecordedAnswer: "FOOBAR", NoWorkspace: true},
			wantAllowed: true,
		},
		{
			name:        "recorded solve with an unarchived workspace is applied",
			ctx:         SolveContext{PuzzleName: "acrostic", Privileged: true, Answer: "FOOBAR", Recorded: StatusSolved, RecordedAnswer: "FOOBAR"},
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanSolve(tt.ctx)
			if result.Allowed != tt.wantAllowed || result.NoOp != tt.wantNoOp {
				t.Fatalf("got Allowed=%v NoOp=%v, want %v %v", result.Allowed, result.NoOp, tt.wantAllowed, tt.wantNoOp)
			}
			if tt.wantErr != nil && !errors.Is(result.Error(), tt.wantErr) {
				t.Errorf("Error() = %v, want %v", result.Error(), tt.wantErr)
			}
		})
	}
}

func TestCanUnsolve(t *testing.T) {
	tests := []struct {
		name        string
		ctx         UnsolveContext
		wantAllowed bool
		wantNoOp    bool
	}{
		{"solved", UnsolveContext{Privileged: true, Current: StatusSolved, Archived: true}, true, false},
		{"archived but record reopened", UnsolveContext{Privileged: true, Current: StatusNew, Archived: true}, true, false},
		{"not solved", UnsolveContext{Privileged: true, Current: StatusGrind}, true, true},
		{"unprivileged", UnsolveContext{Current: StatusSolved}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CanUnsolve(tt.ctx)
			if result.Allowed != tt.wantAllowed || result.NoOp != tt.wantNoOp {
				t.Errorf("got Allowed=%v NoOp=%v, want %v %v", result.Allowed, result.NoOp, tt.wantAllowed, tt.wantNoOp)
			}
		})
	}
}

func TestCanManageRounds(t *testing.T) {
	if !CanManageRounds(true).Allowed {
		t.Error("privileged actor should manage rounds")
	}
	if !errors.Is(CanManageRounds(false).Error(), apperr.ErrForbidden) {
		t.Error("expected Forbidden")
	}
}
