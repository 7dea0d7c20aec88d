package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/clock"
	"github.com/example/puzzbot/internal/core/category"
	"github.com/example/puzzbot/internal/core/effects"
	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/ctxutil"
	"github.com/example/puzzbot/internal/keylock"
	"github.com/example/puzzbot/internal/ports/primary"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// MaxNoteLength is the comment length past which solvers are nudged to keep
// notes in the puzzle doc instead.
const MaxNoteLength = 500

// StatusSettings are the configurable parts of the status state machine.
type StatusSettings struct {
	StatusChannelID string
	ActiveRootID    string // group new workspaces are created under
	RenameWindow    time.Duration
	PrivilegedRoles []string
}

// StatusServiceImpl implements the StatusService interface.
type StatusServiceImpl struct {
	puzzles    secondary.PuzzleRepository
	channels   secondary.ChannelGateway
	audit      secondary.AuditGateway
	categories primary.CategoryService
	executor   EffectExecutor
	clock      clock.Clock
	locks      *keylock.Map
	settings   StatusSettings
	logger     *slog.Logger
	resolver   resolver

	mu      sync.Mutex
	renames map[string]time.Time // channel id -> last rename by this process
}

// NewStatusService creates a new StatusService with injected dependencies.
// locks is shared with every other writer of puzzle records.
func NewStatusService(
	puzzles secondary.PuzzleRepository,
	channels secondary.ChannelGateway,
	audit secondary.AuditGateway,
	categories primary.CategoryService,
	executor EffectExecutor,
	clk clock.Clock,
	locks *keylock.Map,
	settings StatusSettings,
	logger *slog.Logger,
) *StatusServiceImpl {
	return &StatusServiceImpl{
		puzzles:    puzzles,
		channels:   channels,
		audit:      audit,
		categories: categories,
		executor:   executor,
		clock:      clk,
		locks:      locks,
		settings:   settings,
		logger:     logger,
		resolver:   resolver{puzzles: puzzles},
		renames:    make(map[string]time.Time),
	}
}

func puzzleKey(id string) string { return "puzzle:" + id }

// lockPuzzle resolves ref, takes the puzzle's lock and re-reads the record
// so guards see the state as of the lock.
func lockPuzzle(ctx context.Context, r resolver, locks *keylock.Map, ref primary.PuzzleRef) (puzzle.Puzzle, func(), error) {
	p, err := r.resolve(ctx, ref)
	if err != nil {
		return puzzle.Puzzle{}, nil, err
	}
	unlock, err := locks.Lock(ctx, puzzleKey(p.ID))
	if err != nil {
		return puzzle.Puzzle{}, nil, err
	}
	fresh, err := r.byID(ctx, p.ID)
	if err != nil {
		unlock()
		return puzzle.Puzzle{}, nil, err
	}
	return fresh, unlock, nil
}

func (s *StatusServiceImpl) privileged(ctx context.Context) bool {
	return ctxutil.ActorFromContext(ctx).HasRole(s.settings.PrivilegedRoles...)
}

// Mark moves a puzzle to a non-solved status.
func (s *StatusServiceImpl) Mark(ctx context.Context, req primary.MarkRequest) (*primary.TransitionResponse, error) {
	p, unlock, err := lockPuzzle(ctx, s.resolver, s.locks, req.Puzzle)
	if err != nil {
		return nil, err
	}
	defer unlock()

	guard := puzzle.CanMarkStatus(puzzle.MarkContext{PuzzleName: p.Name, Current: p.Status, Target: req.Status})
	if err := guard.Error(); err != nil {
		return nil, err
	}

	var (
		channelName string
		allowed     = true
		lastRename  time.Time
	)
	if p.ChannelID != "" {
		info, err := s.channels.GetChannel(ctx, p.ChannelID)
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, err
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "get channel", err)
		}
		channelName = info.Name
		allowed, lastRename = s.renameAllowed(ctx, p.ChannelID)
	}

	plan := puzzle.GenerateStatusPlan(puzzle.StatusPlanInput{
		Puzzle:          p,
		Target:          req.Status,
		ChannelName:     channelName,
		StatusChannelID: s.settings.StatusChannelID,
		RenameAllowed:   allowed,
	})
	if err := s.executor.Execute(ctx, plan.Effects()); err != nil {
		return nil, err
	}
	if len(plan.ChannelOps) > 0 {
		s.noteRename(p.ChannelID)
	}

	p.Status = req.Status
	resp := &primary.TransitionResponse{
		Outcome:       primary.OutcomeApplied,
		Puzzle:        p,
		RenameSkipped: plan.RenameSkipped,
		LastRenameAt:  lastRename,
	}
	if plan.RenameSkipped {
		resp.Message = fmt.Sprintf("Status updated. The channel was renamed %s, so its name will catch up on a later change.",
			humanize.RelTime(lastRename, s.clock.Now(), "ago", "from now"))
		s.logger.WarnContext(ctx, "rename skipped", "puzzle_id", p.ID, "channel_id", p.ChannelID, "last_rename", lastRename)
	}
	return resp, nil
}

// renameAllowed reports whether the bot may rename channelID now, and when
// it last did so inside the guard window. The audit log covers renames from
// before this process started; an unreadable audit log falls back to the
// in-memory record.
func (s *StatusServiceImpl) renameAllowed(ctx context.Context, channelID string) (bool, time.Time) {
	if s.settings.RenameWindow <= 0 {
		return true, time.Time{}
	}
	now := s.clock.Now()
	since := now.Add(-s.settings.RenameWindow)

	s.mu.Lock()
	last, ok := s.renames[channelID]
	s.mu.Unlock()
	if ok && last.After(since) {
		return false, last
	}

	if s.audit != nil {
		at, found, err := s.audit.LastRename(ctx, channelID, since)
		if err != nil {
			s.logger.WarnContext(ctx, "audit log unavailable; using local rename history", "channel_id", channelID, "error", err)
			return true, time.Time{}
		}
		if found {
			return false, at
		}
	}
	return true, time.Time{}
}

func (s *StatusServiceImpl) noteRename(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renames[channelID] = s.clock.Now()
}

// locate returns the group holding the puzzle's workspace, if any.
func (s *StatusServiceImpl) locate(ctx context.Context, p puzzle.Puzzle) (*category.Group, error) {
	if p.ChannelID == "" {
		return nil, nil
	}
	return s.categories.Locate(ctx, p.ChannelID)
}

// Solve records an answer and archives the workspace.
func (s *StatusServiceImpl) Solve(ctx context.Context, req primary.SolveRequest) (*primary.TransitionResponse, error) {
	// Privilege and usage are checked before any lookup so a stray command
	// costs nothing.
	early := puzzle.CanSolve(puzzle.SolveContext{Privileged: s.privileged(ctx), Answer: req.Answer})
	if err := early.Error(); err != nil {
		return nil, err
	}

	p, unlock, err := lockPuzzle(ctx, s.resolver, s.locks, req.Puzzle)
	if err != nil {
		return nil, err
	}
	defer unlock()

	origin, err := s.locate(ctx, p)
	if err != nil {
		return nil, err
	}
	guard := puzzle.CanSolve(puzzle.SolveContext{
		PuzzleName: p.Name,
		Privileged: true,
		Answer:     req.Answer,
		Archived:   origin != nil && origin.Kind == category.SolvedArchive,

		Recorded:       p.Status,
		RecordedAnswer: p.Answer,
		NoWorkspace:    origin == nil,
	})
	if guard.NoOp {
		return &primary.TransitionResponse{Outcome: primary.OutcomeNoOp, Puzzle: p, Message: guard.Reason}, nil
	}

	plan := puzzle.GenerateSolvePlan(puzzle.SolvePlanInput{
		Puzzle:          p,
		Answer:          req.Answer,
		Origin:          origin,
		StatusChannelID: s.settings.StatusChannelID,
	})
	if plan.NoOp {
		return &primary.TransitionResponse{Outcome: primary.OutcomeNoOp, Puzzle: p, Message: plan.Reason}, nil
	}
	if err := s.executor.Execute(ctx, plan.Effects()); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "puzzle solved", "puzzle_id", p.ID, "puzzle", p.Name, "round", p.Round)

	p.Status = puzzle.StatusSolved
	p.Answer = puzzle.NormalizeAnswer(req.Answer)
	return &primary.TransitionResponse{Outcome: primary.OutcomeApplied, Puzzle: p}, nil
}

// Unsolve clears the answer and moves the workspace back to an active group.
func (s *StatusServiceImpl) Unsolve(ctx context.Context, ref primary.PuzzleRef) (*primary.TransitionResponse, error) {
	if !s.privileged(ctx) {
		return nil, puzzle.CanUnsolve(puzzle.UnsolveContext{}).Error()
	}

	p, unlock, err := lockPuzzle(ctx, s.resolver, s.locks, ref)
	if err != nil {
		return nil, err
	}
	defer unlock()

	origin, err := s.locate(ctx, p)
	if err != nil {
		return nil, err
	}
	guard := puzzle.CanUnsolve(puzzle.UnsolveContext{
		PuzzleName: p.Name,
		Privileged: true,
		Current:    p.Status,
		Archived:   origin != nil && origin.Kind == category.SolvedArchive,
	})
	if guard.NoOp {
		return &primary.TransitionResponse{Outcome: primary.OutcomeNoOp, Puzzle: p, Message: guard.Reason}, nil
	}

	plan := puzzle.GenerateUnsolvePlan(puzzle.UnsolvePlanInput{Puzzle: p, Origin: origin})
	if plan.NoOp {
		return &primary.TransitionResponse{Outcome: primary.OutcomeNoOp, Puzzle: p, Message: plan.Reason}, nil
	}
	if err := s.executor.Execute(ctx, plan.Effects()); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "puzzle unsolved", "puzzle_id", p.ID, "puzzle", p.Name)

	p.Status = puzzle.ReopenStatus(p.Location)
	p.Answer = ""
	return &primary.TransitionResponse{Outcome: primary.OutcomeApplied, Puzzle: p, Message: "Success! Moved this back."}, nil
}

// Publish creates the workspace for a puzzle when it has none, places it and
// announces it. A puzzle whose workspace exists and is already placed is a
// no-op, so repeated publish hooks are harmless.
func (s *StatusServiceImpl) Publish(ctx context.Context, ref primary.PuzzleRef) (*primary.TransitionResponse, error) {
	p, unlock, err := lockPuzzle(ctx, s.resolver, s.locks, ref)
	if err != nil {
		return nil, err
	}
	defer unlock()

	newChannel := false
	if p.ChannelID != "" {
		if _, err := s.channels.GetChannel(ctx, p.ChannelID); err != nil {
			if apperr.KindOf(err) != apperr.KindNotFound {
				return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "get channel", err)
			}
			s.logger.WarnContext(ctx, "workspace channel is gone; creating a new one", "puzzle_id", p.ID, "channel_id", p.ChannelID)
			p.ChannelID = ""
		}
	}
	if p.ChannelID == "" {
		info, err := s.channels.CreateChannel(ctx, secondary.CreateChannelRequest{
			Name:    puzzle.ChannelName(p.Name, p.Status),
			Topic:   "Working on " + p.Name,
			GroupID: s.settings.ActiveRootID,
		})
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "create channel", err)
		}
		p.ChannelID = info.ID
		newChannel = true
	}

	placed := false
	if !newChannel {
		origin, err := s.locate(ctx, p)
		if err != nil {
			return nil, err
		}
		placed = origin != nil && origin.Matches(p.Round, category.ActiveRound)
		if placed {
			return &primary.TransitionResponse{
				Outcome: primary.OutcomeNoOp,
				Puzzle:  p,
				Message: fmt.Sprintf("puzzle %s is already published in %s", p.Name, origin.Name),
			}, nil
		}
	}

	plan := puzzle.GeneratePublishPlan(puzzle.PublishPlanInput{
		Puzzle:          p,
		NewChannel:      newChannel,
		Placed:          placed,
		StatusChannelID: s.settings.StatusChannelID,
	})
	if err := s.executor.Execute(ctx, plan.Effects()); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "puzzle published", "puzzle_id", p.ID, "puzzle", p.Name, "channel_id", p.ChannelID)
	return &primary.TransitionResponse{Outcome: primary.OutcomeApplied, Puzzle: p}, nil
}

// SetNote returns the puzzle's comments, replacing them first when req.Text
// is non-empty.
func (s *StatusServiceImpl) SetNote(ctx context.Context, req primary.NoteRequest) (*primary.NoteResponse, error) {
	if req.Text == "" {
		p, err := s.resolver.resolve(ctx, req.Puzzle)
		if err != nil {
			return nil, err
		}
		return &primary.NoteResponse{Puzzle: p, Note: p.Comments}, nil
	}

	p, unlock, err := lockPuzzle(ctx, s.resolver, s.locks, req.Puzzle)
	if err != nil {
		return nil, err
	}
	defer unlock()

	err = s.executor.Execute(ctx, []effects.Effect{
		effects.RecordEffect{Entity: "puzzle", ID: p.ID, Field: "comments", Value: req.Text},
	})
	if err != nil {
		return nil, err
	}
	p.Comments = req.Text
	return &primary.NoteResponse{
		Puzzle:  p,
		Note:    req.Text,
		Set:     true,
		TooLong: utf8.RuneCountInString(req.Text) > MaxNoteLength,
	}, nil
}
