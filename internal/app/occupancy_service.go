package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/effects"
	"github.com/example/puzzbot/internal/core/occupancy"
	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/keylock"
	"github.com/example/puzzbot/internal/ports/primary"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// NotAtTable is the reply to a join from someone not connected to a table.
const NotAtTable = "Sorry, you need to join one of the table voice chats before you can use the !joinus command.\n\n" +
	"If you're hunting in person, whoever at your table is using the speakerphone must run !joinus for you."

// OccupancySettings are the configurable parts of the occupancy tracker.
type OccupancySettings struct {
	TableMarker  string
	GracePeriod  time.Duration
	ClearTimeout time.Duration
}

// OccupancyServiceImpl implements the OccupancyService interface.
type OccupancyServiceImpl struct {
	puzzles       secondary.PuzzleRepository
	locations     secondary.LocationGateway
	executor      EffectExecutor
	debouncer     *Debouncer
	puzzleLocks   *keylock.Map
	locationLocks keylock.Map
	settings      OccupancySettings
	logger        *slog.Logger
	resolver      resolver
}

// NewOccupancyService creates a new OccupancyService with injected
// dependencies. puzzleLocks is shared with every other writer of puzzle
// records.
func NewOccupancyService(
	puzzles secondary.PuzzleRepository,
	locations secondary.LocationGateway,
	executor EffectExecutor,
	debouncer *Debouncer,
	puzzleLocks *keylock.Map,
	settings OccupancySettings,
	logger *slog.Logger,
) *OccupancyServiceImpl {
	if settings.ClearTimeout <= 0 {
		settings.ClearTimeout = time.Minute
	}
	return &OccupancyServiceImpl{
		puzzles:     puzzles,
		locations:   locations,
		executor:    executor,
		debouncer:   debouncer,
		puzzleLocks: puzzleLocks,
		settings:    settings,
		logger:      logger,
		resolver:    resolver{puzzles: puzzles},
	}
}

// Location locks are always taken before puzzle locks.
func locationKey(name string) string { return "location:" + name }

// SetLocation binds a puzzle to a location; an empty location clears it.
func (s *OccupancyServiceImpl) SetLocation(ctx context.Context, req primary.SetLocationRequest) (*primary.LocationResponse, error) {
	if req.Location != "" {
		unlock, err := s.locationLocks.Lock(ctx, locationKey(req.Location))
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	p, unlock, err := lockPuzzle(ctx, s.resolver, s.puzzleLocks, req.Puzzle)
	if err != nil {
		return nil, err
	}
	defer unlock()

	resp := &primary.LocationResponse{Puzzle: p, Location: req.Location, Previous: p.Location}
	if p.Location == req.Location {
		return resp, nil
	}
	err = s.executor.Execute(ctx, []effects.Effect{
		effects.RecordEffect{Entity: "puzzle", ID: p.ID, Field: "xyzloc", Value: req.Location},
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "location set", "puzzle_id", p.ID, "location", req.Location, "previous", p.Location)
	resp.Puzzle.Location = req.Location
	return resp, nil
}

// Join binds a puzzle to the table the member is connected to.
func (s *OccupancyServiceImpl) Join(ctx context.Context, req primary.JoinRequest) (*primary.LocationResponse, error) {
	loc, err := s.locations.LocationOf(ctx, req.UserID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "find member location", err)
	}
	if loc == nil || !occupancy.IsTable(loc.Category, s.settings.TableMarker) {
		return nil, apperr.New(apperr.KindInvalidInput, "join", "%s", NotAtTable)
	}
	return s.SetLocation(ctx, primary.SetLocationRequest{Puzzle: req.Puzzle, Location: loc.Name})
}

func debounceKey(change primary.MembershipChange) string {
	if change.ChannelID != "" {
		return change.ChannelID
	}
	return change.Location
}

// OnMembershipChanged starts the grace timer when a table empties and
// cancels it when someone comes back.
func (s *OccupancyServiceImpl) OnMembershipChanged(ctx context.Context, change primary.MembershipChange) {
	key := debounceKey(change)
	switch occupancy.OnMembership(occupancy.IsTable(change.Category, s.settings.TableMarker), change.Occupants) {
	case occupancy.CancelClear:
		if s.debouncer.Cancel(key) {
			s.logger.DebugContext(ctx, "table occupied again; clear cancelled", "location", change.Location)
		}
	case occupancy.ScheduleClear:
		s.logger.DebugContext(ctx, "table empty; clear scheduled", "location", change.Location, "grace", s.settings.GracePeriod)
		s.debouncer.Schedule(key, s.settings.GracePeriod, func() {
			s.clearLocation(change)
		})
	}
}

// clearLocation runs when a table has stayed empty for the grace period. It
// re-checks live occupancy, then clears each bound puzzle under its own lock.
func (s *OccupancyServiceImpl) clearLocation(change primary.MembershipChange) {
	ctx, cancel := context.WithTimeout(context.Background(), s.settings.ClearTimeout)
	defer cancel()
	logger := s.logger.With("location", change.Location)

	unlock, err := s.locationLocks.Lock(ctx, locationKey(change.Location))
	if err != nil {
		logger.Warn("could not lock location for clearing", "error", err)
		return
	}
	defer unlock()

	if change.ChannelID != "" {
		live, err := s.locations.Location(ctx, change.ChannelID)
		if err != nil {
			logger.Warn("could not re-check occupancy; skipping clear", "error", err)
			return
		}
		if live != nil && live.Occupants > 0 {
			logger.Debug("table re-occupied before clear", "occupants", live.Occupants)
			return
		}
	}

	records, err := s.puzzles.List(ctx, secondary.PuzzleFilters{Location: change.Location})
	if err != nil {
		logger.Error("failed to list puzzles for clearing", "error", err)
		return
	}

	cleared := 0
	for _, r := range records {
		if err := s.clearOne(ctx, r.ID, change.Location); err != nil {
			logger.Error("failed to clear puzzle location", "puzzle_id", r.ID, "error", err)
			continue
		}
		cleared++
	}
	logger.Info("cleared table", "puzzles", cleared)
}

func (s *OccupancyServiceImpl) clearOne(ctx context.Context, puzzleID, location string) error {
	p, unlock, err := lockPuzzle(ctx, s.resolver, s.puzzleLocks, primary.PuzzleRef{ID: puzzleID})
	if err != nil {
		return err
	}
	defer unlock()

	plan := occupancy.GenerateClearPlan(occupancy.ClearPlanInput{Location: location, Puzzles: []puzzle.Puzzle{p}})
	return s.executor.Execute(ctx, plan.Effects())
}
