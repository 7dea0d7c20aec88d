// Package category contains the pure rules for placing workspace channels
// into capacity-limited groups. Nothing here talks to the platform; callers
// pass a snapshot of the group listing and act on the returned decisions.
package category

import (
	"fmt"
	"strings"
)

// Kind tags a group as active work or solved archive for a round.
type Kind int

const (
	ActiveRound Kind = iota
	SolvedArchive
)

func (k Kind) String() string {
	if k == SolvedArchive {
		return "solved_archive"
	}
	return "active_round"
}

// KindFor maps the archive flag used by callers to a Kind.
func KindFor(archive bool) Kind {
	if archive {
		return SolvedArchive
	}
	return ActiveRound
}

// DefaultCapacity is the platform limit on channels per category.
const DefaultCapacity = 50

const (
	activePrefix  = "🧩 "
	archivePrefix = "🏁 Solved from: "
)

// Group is a platform category as seen by the capacity rules.
type Group struct {
	ID             string
	Name           string
	Round          string
	Kind           Kind
	Position       int
	MemberChannels []string
	Root           bool
	Classified     bool // Round and Kind were derived from Name
}

// Count returns the number of member channels.
func (g Group) Count() int { return len(g.MemberChannels) }

// Holds reports whether channelID is a member of g.
func (g Group) Holds(channelID string) bool {
	for _, id := range g.MemberChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// DisplayName renders the human-facing category name for a round.
func DisplayName(round string, kind Kind) string {
	if kind == SolvedArchive {
		return archivePrefix + round
	}
	return activePrefix + round
}

// Classify recovers the round and kind from a category name. ok is false for
// names that do not follow either convention (roots, table categories, misc).
func Classify(name string) (round string, kind Kind, ok bool) {
	switch {
	case strings.HasPrefix(name, archivePrefix):
		round = strings.TrimPrefix(name, archivePrefix)
		kind = SolvedArchive
	case strings.HasPrefix(name, activePrefix):
		round = strings.TrimPrefix(name, activePrefix)
		kind = ActiveRound
	default:
		return "", ActiveRound, false
	}
	if strings.TrimSpace(round) == "" {
		return "", ActiveRound, false
	}
	return round, kind, true
}

// Roots identifies the two permanent root groups.
type Roots struct {
	ActiveID  string
	ArchiveID string
}

// Annotate fills Round, Kind, Classified and Root on a raw listing. Root
// groups get the kind they serve but no round.
func Annotate(groups []Group, roots Roots) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		if round, kind, ok := Classify(g.Name); ok {
			g.Round, g.Kind, g.Classified = round, kind, true
		}
		switch {
		case roots.ActiveID != "" && g.ID == roots.ActiveID:
			g.Root, g.Kind = true, ActiveRound
		case roots.ArchiveID != "" && g.ID == roots.ArchiveID:
			g.Root, g.Kind = true, SolvedArchive
		}
		out[i] = g
	}
	return out
}

// Root returns the root group of kind from an annotated listing.
func Root(groups []Group, kind Kind) (Group, bool) {
	for _, g := range groups {
		if g.Root && g.Kind == kind {
			return g, true
		}
	}
	return Group{}, false
}

// Matches reports whether g is a group of the given kind for round.
func (g Group) Matches(round string, kind Kind) bool {
	return g.Classified && !g.Root && g.Round == round && g.Kind == kind
}

// Find returns the group that currently holds channelID.
func Find(groups []Group, channelID string) (Group, bool) {
	for _, g := range groups {
		if g.Holds(channelID) {
			return g, true
		}
	}
	return Group{}, false
}

func (g Group) String() string {
	return fmt.Sprintf("%s (%d)", g.Name, g.Count())
}
