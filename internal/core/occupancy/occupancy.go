// Package occupancy contains the pure rules for binding puzzles to tables and
// for clearing those bindings when a table empties out.
package occupancy

import (
	"strings"

	"github.com/example/puzzbot/internal/core/effects"
	"github.com/example/puzzbot/internal/core/puzzle"
)

// Location is a place puzzles are worked at, with its live occupant count.
type Location struct {
	ID        string
	Name      string
	Category  string
	Occupants int
}

// IsTable reports whether a location under categoryName counts as a table.
// Tables are the voice channels whose category name contains marker.
func IsTable(categoryName, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(categoryName), strings.ToLower(marker))
}

const redirectMarker = "<<<REDIRECTED>>>"

// Redirected reports whether a record was merged into another puzzle and
// should be hidden from location views.
func Redirected(p puzzle.Puzzle) bool {
	return strings.HasPrefix(p.Comments, redirectMarker) || strings.HasPrefix(p.Location, redirectMarker)
}

// ClearPlanInput contains the inputs needed to clear a location.
type ClearPlanInput struct {
	Location string
	Puzzles  []puzzle.Puzzle
}

// ClearStep is the work for one puzzle bound to a cleared location.
type ClearStep struct {
	PuzzleID string
	Record   effects.RecordEffect
	Notice   *effects.MessageEffect // nil for solved puzzles
}

// ClearPlan holds the effects of clearing a location.
type ClearPlan struct {
	Location string
	Steps    []ClearStep
}

// Effects returns each puzzle's record write followed by its notice, so a
// failure part way leaves earlier puzzles fully handled.
func (p ClearPlan) Effects() []effects.Effect {
	out := make([]effects.Effect, 0, 2*len(p.Steps))
	for _, s := range p.Steps {
		out = append(out, s.Record)
		if s.Notice != nil {
			out = append(out, *s.Notice)
		}
	}
	return out
}

// GenerateClearPlan plans clearing every puzzle still bound to the location.
// Puzzles bound elsewhere are ignored, so a stale snapshot cannot clear a
// binding that moved.
func GenerateClearPlan(in ClearPlanInput) ClearPlan {
	plan := ClearPlan{Location: in.Location}
	for _, p := range in.Puzzles {
		if p.Location != in.Location || in.Location == "" {
			continue
		}
		step := ClearStep{
			PuzzleID: p.ID,
			Record:   effects.RecordEffect{Entity: "puzzle", ID: p.ID, Field: "xyzloc", Value: ""},
		}
		if !p.IsSolved() && p.ChannelID != "" {
			step.Notice = &effects.MessageEffect{
				ChannelID: p.ChannelID,
				Content:   puzzle.TableEmptiedNotice(in.Location),
			}
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan
}

// Transition is what a membership change means for a location's debounce
// timer.
type Transition int

const (
	Ignore Transition = iota
	CancelClear
	ScheduleClear
)

// OnMembership decides what a new occupant count means for a location.
func OnMembership(isTable bool, occupants int) Transition {
	if occupants > 0 {
		return CancelClear
	}
	if isTable {
		return ScheduleClear
	}
	return Ignore
}
