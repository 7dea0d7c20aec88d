package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/category"
	"github.com/example/puzzbot/internal/ctxutil"
	"github.com/example/puzzbot/internal/ports/primary"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// CleanupServiceImpl implements the CleanupService interface.
type CleanupServiceImpl struct {
	puzzles         secondary.PuzzleRepository
	channels        secondary.ChannelGateway
	categories      primary.CategoryService
	keep            map[string]bool // channels never treated as orphans
	privilegedRoles []string
	logger          *slog.Logger
}

// NewCleanupService creates a new CleanupService. keep lists channel ids that
// are never deleted, such as the status channel.
func NewCleanupService(
	puzzles secondary.PuzzleRepository,
	channels secondary.ChannelGateway,
	categories primary.CategoryService,
	keep []string,
	privilegedRoles []string,
	logger *slog.Logger,
) *CleanupServiceImpl {
	k := make(map[string]bool, len(keep))
	for _, id := range keep {
		if id != "" {
			k[id] = true
		}
	}
	return &CleanupServiceImpl{
		puzzles:         puzzles,
		channels:        channels,
		categories:      categories,
		keep:            k,
		privilegedRoles: privilegedRoles,
		logger:          logger,
	}
}

// Cleanup reports workspace channels in puzzle groups that no puzzle record
// points at. With the confirmation phrase it deletes them, then every empty
// non-root puzzle group.
func (s *CleanupServiceImpl) Cleanup(ctx context.Context, confirmation string) (*primary.CleanupReport, error) {
	if !ctxutil.ActorFromContext(ctx).HasRole(s.privilegedRoles...) {
		return nil, apperr.Forbidden("cleanup", "only puzzlebosses can clean up channels")
	}

	records, err := s.puzzles.List(ctx, secondary.PuzzleFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list puzzles: %w", err)
	}
	referenced := make(map[string]bool, len(records))
	for _, r := range records {
		if r.ChannelID != "" {
			referenced[r.ChannelID] = true
		}
	}

	groups, err := s.categories.Groups(ctx)
	if err != nil {
		return nil, err
	}
	report := &primary.CleanupReport{}
	for _, g := range groups {
		if !g.Classified || g.Root {
			continue
		}
		for _, id := range g.MemberChannels {
			if !referenced[id] && !s.keep[id] {
				report.Orphans = append(report.Orphans, id)
			}
		}
	}

	if confirmation != primary.CleanupConfirmation {
		return report, nil
	}

	for _, id := range report.Orphans {
		if err := s.channels.DeleteChannel(ctx, id); err != nil {
			return report, apperr.Wrap(apperr.KindUpstreamUnavailable, "delete channel "+id, err)
		}
		s.logger.InfoContext(ctx, "deleted orphaned channel", "channel_id", id)
	}
	report.Deleted = true

	// Re-list so groups emptied above are seen as empty.
	groups, err = s.categories.Groups(ctx)
	if err != nil {
		return report, err
	}
	for _, g := range groups {
		if !g.Classified || g.Root || g.Count() > 0 {
			continue
		}
		pruned, err := s.categories.PruneIfEmpty(ctx, g.ID, g.Round, g.Kind == category.SolvedArchive)
		if err != nil {
			return report, err
		}
		if pruned {
			report.DeletedGroups = append(report.DeletedGroups, g.Name)
		}
	}
	return report, nil
}
