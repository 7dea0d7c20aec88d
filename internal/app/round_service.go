package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/effects"
	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/ctxutil"
	"github.com/example/puzzbot/internal/ports/primary"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// RoundServiceImpl implements the RoundService interface.
type RoundServiceImpl struct {
	rounds          secondary.RoundRepository
	categories      primary.CategoryService
	executor        EffectExecutor
	statusChannelID string
	privilegedRoles []string
	logger          *slog.Logger
}

// NewRoundService creates a new RoundService with injected dependencies.
func NewRoundService(
	rounds secondary.RoundRepository,
	categories primary.CategoryService,
	executor EffectExecutor,
	statusChannelID string,
	privilegedRoles []string,
	logger *slog.Logger,
) *RoundServiceImpl {
	return &RoundServiceImpl{
		rounds:          rounds,
		categories:      categories,
		executor:        executor,
		statusChannelID: statusChannelID,
		privilegedRoles: privilegedRoles,
		logger:          logger,
	}
}

// AnnounceRound ensures the round has an active group and broadcasts it.
func (s *RoundServiceImpl) AnnounceRound(ctx context.Context, round string) error {
	round = strings.TrimSpace(round)
	if _, err := s.categories.ResolveGroup(ctx, round, false); err != nil {
		return err
	}
	if s.statusChannelID == "" {
		return nil
	}
	return s.executor.Execute(ctx, []effects.Effect{puzzle.RoundAnnouncement(round, s.statusChannelID)})
}

// CreateRound adds the round record and announces it.
func (s *RoundServiceImpl) CreateRound(ctx context.Context, round string) error {
	if err := puzzle.CanManageRounds(ctxutil.ActorFromContext(ctx).HasRole(s.privilegedRoles...)).Error(); err != nil {
		return err
	}
	round = strings.TrimSpace(round)
	if round == "" {
		return apperr.New(apperr.KindInvalidInput, "create round", "Usage: `!newround [round name]`")
	}
	if err := s.rounds.Create(ctx, round); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "round created", "round", round)
	return s.AnnounceRound(ctx, round)
}

// SolveRound marks a round's meta solved.
func (s *RoundServiceImpl) SolveRound(ctx context.Context, round string) error {
	if err := puzzle.CanManageRounds(ctxutil.ActorFromContext(ctx).HasRole(s.privilegedRoles...)).Error(); err != nil {
		return err
	}
	record, err := s.rounds.GetByName(ctx, strings.TrimSpace(round))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.NotFound("solve round",
				"Error. This is likely because the round `%s` doesn't exist with exactly that name. Please try again.", round)
		}
		return err
	}
	if record.Solved() {
		return nil
	}
	err = s.executor.Execute(ctx, []effects.Effect{
		effects.RecordEffect{Entity: "round", ID: record.ID, Field: "status", Value: string(puzzle.StatusSolved)},
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "round solved", "round", record.Name)
	return nil
}
