package puzzle

import (
	"fmt"

	"github.com/example/puzzbot/internal/apperr"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	NoOp    bool // allowed, but nothing needs to happen
	Reason  string
	Kind    apperr.Kind
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	kind := r.Kind
	if kind == "" {
		kind = apperr.KindInvalidTransition
	}
	return apperr.New(kind, "", "%s", r.Reason)
}

// MarkContext provides context for non-solve status changes.
type MarkContext struct {
	PuzzleName string
	Current    Status
	Target     Status
}

// SolveContext provides context for the solve transition.
type SolveContext struct {
	PuzzleName string
	Privileged bool
	Answer     string
	Archived   bool // workspace already sits in a solved-archive group

	// Recorded is the puzzle's status and answer as stored. Without a
	// workspace, a recorded solve with the same answer is a no-op.
	Recorded       Status
	RecordedAnswer string
	NoWorkspace    bool
}

// UnsolveContext provides context for the unsolve transition.
type UnsolveContext struct {
	PuzzleName string
	Privileged bool
	Current    Status
	Archived   bool
}

// CanMarkStatus evaluates whether a puzzle may move to a non-solved status.
// Rules:
// - Solved is only reachable through CanSolve
// - A solved puzzle must be unsolved first
func CanMarkStatus(ctx MarkContext) GuardResult {
	if ctx.Target == StatusSolved {
		return GuardResult{
			Reason: "use `solved ANSWER` to mark a puzzle solved",
			Kind:   apperr.KindInvalidInput,
		}
	}
	if ctx.Current == StatusSolved {
		return GuardResult{
			Reason: fmt.Sprintf("puzzle %s is already solved; a puzzleboss can run `unsolved` first", ctx.PuzzleName),
			Kind:   apperr.KindInvalidTransition,
		}
	}
	return GuardResult{Allowed: true}
}

// CanSolve evaluates whether a puzzle may be marked solved.
// Rules:
// - Actor must be privileged
// - Answer must be non-empty
// - Already archived workspaces are a no-op
// - Without a workspace, a puzzle already solved with the same answer is a no-op
func CanSolve(ctx SolveContext) GuardResult {
	if !ctx.Privileged {
		return GuardResult{
			Reason: "only puzzlebosses can mark a puzzle as solved; they have been pinged",
			Kind:   apperr.KindForbidden,
		}
	}
	if NormalizeAnswer(ctx.Answer) == "" {
		return GuardResult{
			Reason: "Usage: `!solved ANSWER`",
			Kind:   apperr.KindInvalidInput,
		}
	}
	if ctx.Archived {
		return GuardResult{
			Allowed: true,
			NoOp:    true,
			Reason:  fmt.Sprintf("puzzle %s is already archived", ctx.PuzzleName),
		}
	}
	if ctx.NoWorkspace && ctx.Recorded == StatusSolved && ctx.RecordedAnswer == NormalizeAnswer(ctx.Answer) {
		return GuardResult{
			Allowed: true,
			NoOp:    true,
			Reason:  fmt.Sprintf("puzzle %s is already solved", ctx.PuzzleName),
		}
	}
	return GuardResult{Allowed: true}
}

// CanUnsolve evaluates whether a puzzle may leave the solved state.
// Rules:
// - Actor must be privileged
// - A puzzle that is neither solved nor archived is a no-op
func CanUnsolve(ctx UnsolveContext) GuardResult {
	if !ctx.Privileged {
		return GuardResult{
			Reason: "only puzzlebosses can unsolve a puzzle",
			Kind:   apperr.KindForbidden,
		}
	}
	if ctx.Current != StatusSolved && !ctx.Archived {
		return GuardResult{
			Allowed: true,
			NoOp:    true,
			Reason:  fmt.Sprintf("puzzle %s is not solved", ctx.PuzzleName),
		}
	}
	return GuardResult{Allowed: true}
}

// CanManageRounds evaluates whether the actor may create or finish rounds.
func CanManageRounds(privileged bool) GuardResult {
	if !privileged {
		return GuardResult{Reason: "only puzzlebosses can manage rounds", Kind: apperr.KindForbidden}
	}
	return GuardResult{Allowed: true}
}
