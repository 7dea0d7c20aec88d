package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/category"
	"github.com/example/puzzbot/internal/keylock"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// CategoryServiceImpl implements the CategoryService interface.
type CategoryServiceImpl struct {
	groups   secondary.GroupGateway
	channels secondary.ChannelGateway
	roots    category.Roots
	limit    int
	locks    keylock.Map
	logger   *slog.Logger
}

// NewCategoryService creates a new CategoryService with injected dependencies.
func NewCategoryService(
	groups secondary.GroupGateway,
	channels secondary.ChannelGateway,
	roots category.Roots,
	limit int,
	logger *slog.Logger,
) *CategoryServiceImpl {
	if limit <= 0 {
		limit = category.DefaultCapacity
	}
	return &CategoryServiceImpl{
		groups:   groups,
		channels: channels,
		roots:    roots,
		limit:    limit,
		logger:   logger,
	}
}

// Placements for one round and kind are serialized; different rounds proceed
// in parallel.
func groupKey(round string, kind category.Kind) string {
	return "group:" + kind.String() + ":" + round
}

// Groups returns the annotated group listing.
func (s *CategoryServiceImpl) Groups(ctx context.Context) ([]category.Group, error) {
	infos, err := s.groups.ListGroups(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "list groups", err)
	}
	groups := make([]category.Group, len(infos))
	for i, info := range infos {
		groups[i] = category.Group{
			ID:             info.ID,
			Name:           info.Name,
			Position:       info.Position,
			MemberChannels: info.MemberChannels,
		}
	}
	return category.Annotate(groups, s.roots), nil
}

// ResolveGroup returns a group for round with room for one more channel.
func (s *CategoryServiceImpl) ResolveGroup(ctx context.Context, round string, archive bool) (*category.Group, error) {
	kind := category.KindFor(archive)
	if round == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "resolve group", "puzzle has no round")
	}
	unlock, err := s.locks.Lock(ctx, groupKey(round, kind))
	if err != nil {
		return nil, err
	}
	defer unlock()

	groups, err := s.Groups(ctx)
	if err != nil {
		return nil, err
	}
	return s.resolveLocked(ctx, groups, round, kind)
}

func (s *CategoryServiceImpl) resolveLocked(ctx context.Context, groups []category.Group, round string, kind category.Kind) (*category.Group, error) {
	if g, ok := category.SelectGroup(groups, round, kind, s.limit); ok {
		return &g, nil
	}

	root, ok := category.Root(groups, kind)
	if !ok {
		return nil, apperr.Wrap(apperr.KindGroupCreateFailed, "resolve group",
			fmt.Errorf("no %s root group is configured", kind))
	}
	plan := category.PlanOverflow(groups, round, kind, root)
	info, err := s.groups.CloneGroup(ctx, secondary.CloneGroupRequest{
		FromID:   plan.CloneFrom,
		Name:     plan.Name,
		Position: plan.Position,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGroupCreateFailed, "create group "+plan.Name, err)
	}
	s.logger.Info("created group", "group", info.Name, "group_id", info.ID, "round", round, "kind", kind.String())

	return &category.Group{
		ID:         info.ID,
		Name:       info.Name,
		Round:      round,
		Kind:       kind,
		Position:   plan.Position,
		Classified: true,
	}, nil
}

// Place moves channelID into a group for round with room, creating one if
// needed. A channel already in a matching group only has its position set.
func (s *CategoryServiceImpl) Place(ctx context.Context, channelID, round string, archive bool, position int) (*category.Group, error) {
	kind := category.KindFor(archive)
	if round == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "place channel", "puzzle has no round")
	}
	unlock, err := s.locks.Lock(ctx, groupKey(round, kind))
	if err != nil {
		return nil, err
	}
	defer unlock()

	groups, err := s.Groups(ctx)
	if err != nil {
		return nil, err
	}

	target, ok := category.Find(groups, channelID)
	if !ok || !target.Matches(round, kind) {
		resolved, err := s.resolveLocked(ctx, groups, round, kind)
		if err != nil {
			return nil, err
		}
		target = *resolved
	}

	if err := s.channels.MoveChannel(ctx, channelID, target.ID, position); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "move channel", err)
	}
	s.logger.Debug("placed channel", "channel_id", channelID, "group", target.Name)
	return &target, nil
}

// PruneIfEmpty deletes a non-root group that holds no channels. The check
// runs against a fresh listing under the round's lock.
func (s *CategoryServiceImpl) PruneIfEmpty(ctx context.Context, groupID, round string, archive bool) (bool, error) {
	unlock, err := s.locks.Lock(ctx, groupKey(round, category.KindFor(archive)))
	if err != nil {
		return false, err
	}
	defer unlock()

	groups, err := s.Groups(ctx)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		if g.ID != groupID {
			continue
		}
		if guard := category.CanPruneGroup(g); !guard.Allowed {
			s.logger.Debug("keeping group", "group", g.Name, "reason", guard.Reason)
			return false, nil
		}
		if err := s.groups.DeleteGroup(ctx, g.ID); err != nil {
			return false, apperr.Wrap(apperr.KindUpstreamUnavailable, "delete group", err)
		}
		s.logger.Info("deleted empty group", "group", g.Name, "group_id", g.ID)
		return true, nil
	}
	return false, nil
}

// Locate returns the group currently holding channelID, or nil.
func (s *CategoryServiceImpl) Locate(ctx context.Context, channelID string) (*category.Group, error) {
	groups, err := s.Groups(ctx)
	if err != nil {
		return nil, err
	}
	if g, ok := category.Find(groups, channelID); ok {
		return &g, nil
	}
	return nil, nil
}
