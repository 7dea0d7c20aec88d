package category

import (
	"fmt"

	"github.com/example/puzzbot/internal/apperr"
)

// GuardResult is the outcome of a placement rule.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return apperr.New(apperr.KindInvalidTransition, "", "%s", r.Reason)
}

// SelectGroup returns the first group in listing order that belongs to round
// with the requested kind and still has room. ok is false when every such
// group is full or none exists.
func SelectGroup(groups []Group, round string, kind Kind, limit int) (Group, bool) {
	for _, g := range groups {
		if g.Matches(round, kind) && g.Count() < limit {
			return g, true
		}
	}
	return Group{}, false
}

// OverflowPlan describes a group to create because no existing one has room.
type OverflowPlan struct {
	Name      string
	Round     string
	Kind      Kind
	CloneFrom string // root group whose permissions are inherited
	Position  int
}

// PlanOverflow decides the name and position of a new group for round. The
// new group sits directly after root, or above the topmost existing sibling
// so a round's groups stay clustered with the newest first.
func PlanOverflow(groups []Group, round string, kind Kind, root Group) OverflowPlan {
	plan := OverflowPlan{
		Name:      DisplayName(round, kind),
		Round:     round,
		Kind:      kind,
		CloneFrom: root.ID,
		Position:  root.Position + 1,
	}
	found := false
	for _, g := range groups {
		if !g.Matches(round, kind) {
			continue
		}
		if !found || g.Position < plan.Position {
			plan.Position = g.Position
			found = true
		}
	}
	return plan
}

// CanPruneGroup evaluates whether g may be deleted.
// Rules:
// - Root groups are permanent
// - Only empty groups are deleted
func CanPruneGroup(g Group) GuardResult {
	if g.Root {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("group %s is a root group", g.Name)}
	}
	if g.Count() > 0 {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("group %s still holds %d channels", g.Name, g.Count())}
	}
	return GuardResult{Allowed: true}
}

// OverCapacity lists groups that violate the limit. The platform enforces
// the same limit, so a non-empty result means the listing is stale or a
// limit was configured above the platform's.
func OverCapacity(groups []Group, limit int) []Group {
	var out []Group
	for _, g := range groups {
		if g.Classified && g.Count() > limit {
			out = append(out, g)
		}
	}
	return out
}
