// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle output formatting but delegate
// business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/ports/primary"
)

// BoardAdapter prints the hunt state for an operator's terminal.
type BoardAdapter struct {
	service primary.ReportService
	out     io.Writer
}

// NewBoardAdapter creates a new BoardAdapter with the given service.
func NewBoardAdapter(service primary.ReportService, out io.Writer) *BoardAdapter {
	return &BoardAdapter{
		service: service,
		out:     out,
	}
}

// statusColor picks the colour of a status column.
func statusColor(s puzzle.Status) *color.Color {
	switch {
	case s == puzzle.StatusSolved:
		return color.New(color.FgGreen)
	case s == puzzle.StatusCritical || s == puzzle.StatusWTF:
		return color.New(color.FgRed)
	case puzzle.IsAttention(s):
		return color.New(color.FgYellow)
	case s == puzzle.StatusUnnecessary:
		return color.New(color.FgHiBlack)
	default:
		return color.New(color.Reset)
	}
}

// Tables prints which puzzles are being worked at which table.
func (a *BoardAdapter) Tables(ctx context.Context) error {
	board, err := a.service.Board(ctx)
	if err != nil {
		return fmt.Errorf("failed to build board: %w", err)
	}

	if len(board.Tables) == 0 {
		fmt.Fprintln(a.out, "No open puzzles at any table")
	}
	for _, t := range board.Tables {
		occupants := color.New(color.FgYellow).Sprint("?")
		if t.Known {
			occupants = color.New(color.FgCyan).Sprintf("%d", t.Occupants)
		}
		fmt.Fprintf(a.out, "%s (%s)\n", color.New(color.Bold).Sprint(t.Location), occupants)
		for _, p := range t.Puzzles {
			fmt.Fprintf(a.out, "  %-30s %s\n", p.Name, statusColor(p.Status).Sprint(p.Status))
		}
	}

	if len(board.Quiet) > 0 {
		fmt.Fprintf(a.out, "\n%s\n", color.New(color.FgHiMagenta).Sprint("Not being worked anywhere:"))
		for _, q := range board.Quiet {
			names := make([]string, len(q.Puzzles))
			for i, p := range q.Puzzles {
				names[i] = p.Name
			}
			fmt.Fprintf(a.out, "  %s: %s\n", q.Round, strings.Join(names, ", "))
		}
	}
	return nil
}

// Puzzles lists puzzles, optionally one round and only the unsolved ones.
func (a *BoardAdapter) Puzzles(ctx context.Context, round string, open bool) error {
	puzzles, err := a.service.List(ctx, round, open)
	if err != nil {
		return fmt.Errorf("failed to list puzzles: %w", err)
	}

	if len(puzzles) == 0 {
		fmt.Fprintln(a.out, "No puzzles found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-6s %-30s %-20s %-16s %s\n", "ID", "NAME", "ROUND", "STATUS", "LOCATION")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────────────────────────")
	for _, p := range puzzles {
		status := statusColor(p.Status).Sprintf("%-16s", p.Status)
		fmt.Fprintf(a.out, "%-6s %-30s %-20s %s %s\n", p.ID, p.Name, p.Round, status, p.Location)
	}
	return nil
}
