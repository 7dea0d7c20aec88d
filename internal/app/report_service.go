package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/clock"
	"github.com/example/puzzbot/internal/core/occupancy"
	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/ports/primary"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// boardTimeFormat renders the "as of" stamp on the tables board.
const boardTimeFormat = "Monday at 03:04:05PM MST"

// ReportServiceImpl implements the ReportService interface.
type ReportServiceImpl struct {
	puzzles     secondary.PuzzleRepository
	rounds      secondary.RoundRepository
	locations   secondary.LocationGateway
	clock       clock.Clock
	tableMarker string
	zone        *time.Location
	resolver    resolver
}

// NewReportService creates a new ReportService. zone sets the time zone of
// the board stamp; nil means local time.
func NewReportService(
	puzzles secondary.PuzzleRepository,
	rounds secondary.RoundRepository,
	locations secondary.LocationGateway,
	clk clock.Clock,
	tableMarker string,
	zone *time.Location,
) *ReportServiceImpl {
	if zone == nil {
		zone = time.Local
	}
	return &ReportServiceImpl{
		puzzles:     puzzles,
		rounds:      rounds,
		locations:   locations,
		clock:       clk,
		tableMarker: tableMarker,
		zone:        zone,
		resolver:    resolver{puzzles: puzzles},
	}
}

// Board derives the tables view from live locations and current records.
func (s *ReportServiceImpl) Board(ctx context.Context) (occupancy.Board, error) {
	voice, err := s.locations.ListLocations(ctx)
	if err != nil {
		return occupancy.Board{}, apperr.Wrap(apperr.KindUpstreamUnavailable, "list locations", err)
	}
	var tables []occupancy.Location
	for _, v := range voice {
		if occupancy.IsTable(v.Category, s.tableMarker) {
			tables = append(tables, occupancy.Location{ID: v.ID, Name: v.Name, Category: v.Category, Occupants: v.Occupants})
		}
	}

	records, err := s.puzzles.List(ctx, secondary.PuzzleFilters{ExcludeSolved: true})
	if err != nil {
		return occupancy.Board{}, fmt.Errorf("failed to list puzzles: %w", err)
	}
	rounds, err := s.rounds.List(ctx)
	if err != nil {
		return occupancy.Board{}, fmt.Errorf("failed to list rounds: %w", err)
	}
	var solved []string
	for _, r := range rounds {
		if r.Solved() {
			solved = append(solved, r.Name)
		}
	}
	return occupancy.BuildBoard(tables, recordsToPuzzles(records), solved), nil
}

// Tables renders which puzzles are being worked where.
func (s *ReportServiceImpl) Tables(ctx context.Context) (string, error) {
	board, err := s.Board(ctx)
	if err != nil {
		return "", err
	}
	return occupancy.RenderBoard(board, s.clock.Now().In(s.zone).Format(boardTimeFormat)), nil
}

// List returns puzzles of round, or of every round when round is empty.
func (s *ReportServiceImpl) List(ctx context.Context, round string, open bool) ([]puzzle.Puzzle, error) {
	records, err := s.puzzles.List(ctx, secondary.PuzzleFilters{Round: round, ExcludeSolved: open})
	if err != nil {
		return nil, fmt.Errorf("failed to list puzzles: %w", err)
	}
	return recordsToPuzzles(records), nil
}

// WhereIs renders the location of one puzzle.
func (s *ReportServiceImpl) WhereIs(ctx context.Context, ref primary.PuzzleRef) (string, error) {
	p, err := s.resolver.resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	return occupancy.RenderWhereIs(p), nil
}

// Hipri renders the attention-status puzzles.
func (s *ReportServiceImpl) Hipri(ctx context.Context) (string, error) {
	records, err := s.puzzles.List(ctx, secondary.PuzzleFilters{ExcludeSolved: true})
	if err != nil {
		return "", fmt.Errorf("failed to list puzzles: %w", err)
	}
	return occupancy.RenderHipri(recordsToPuzzles(records)), nil
}

// Find resolves a puzzle for display.
func (s *ReportServiceImpl) Find(ctx context.Context, ref primary.PuzzleRef) (*puzzle.Puzzle, error) {
	p, err := s.resolver.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
