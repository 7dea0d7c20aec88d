package puzzle

import (
	"fmt"

	"github.com/example/puzzbot/internal/core/category"
	"github.com/example/puzzbot/internal/core/effects"
)

// StatusPlanInput contains the inputs needed to plan a status change.
// All values are pre-fetched by the caller - no I/O in the planner.
type StatusPlanInput struct {
	Puzzle          Puzzle
	Target          Status
	ChannelName     string // current workspace channel name
	StatusChannelID string
	RenameAllowed   bool // false when the channel was renamed inside the guard window
}

// StatusPlan holds the effects of a status change.
type StatusPlan struct {
	PuzzleID      string
	DesiredName   string
	RenameSkipped bool
	RecordOps     []effects.RecordEffect
	MessageOps    []effects.MessageEffect
	ChannelOps    []effects.ChannelEffect
}

// Effects returns the record write first, then announcements, then the
// rename, so a rejected rename never blocks the announcement.
func (p StatusPlan) Effects() []effects.Effect {
	out := make([]effects.Effect, 0, len(p.RecordOps)+len(p.MessageOps)+len(p.ChannelOps))
	for _, e := range p.RecordOps {
		out = append(out, e)
	}
	for _, e := range p.MessageOps {
		out = append(out, e)
	}
	for _, e := range p.ChannelOps {
		out = append(out, e)
	}
	return out
}

// GenerateStatusPlan plans a non-solved status change.
func GenerateStatusPlan(in StatusPlanInput) StatusPlan {
	p := in.Puzzle
	plan := StatusPlan{PuzzleID: p.ID, DesiredName: ChannelName(p.Name, in.Target)}

	plan.RecordOps = append(plan.RecordOps, effects.RecordEffect{
		Entity: "puzzle", ID: p.ID, Field: "status", Value: string(in.Target),
	})

	updated := p
	updated.Status = in.Target
	ann := StatusAnnouncement(p.Name, in.Target)
	var embed *effects.Embed
	if ann.WithEmbed {
		embed = BuildEmbed(updated)
	}
	if p.ChannelID != "" {
		plan.MessageOps = append(plan.MessageOps, effects.MessageEffect{
			ChannelID: p.ChannelID, Content: ann.Content, Embed: embed, Pin: true,
		})
	}
	if in.StatusChannelID != "" {
		plan.MessageOps = append(plan.MessageOps, effects.MessageEffect{
			ChannelID: in.StatusChannelID, Content: ann.Content, Embed: embed,
		})
	}

	if p.ChannelID != "" && !SameChannelName(plan.DesiredName, in.ChannelName) {
		if in.RenameAllowed {
			plan.ChannelOps = append(plan.ChannelOps, effects.ChannelEffect{
				Operation: effects.ChannelRename, ChannelID: p.ChannelID, Name: plan.DesiredName,
			})
		} else {
			plan.RenameSkipped = true
		}
	}
	return plan
}

// MovePlan holds the effects of a solve or unsolve: record writes, the group
// move, pruning of the group left behind, then announcements.
type MovePlan struct {
	PuzzleID   string
	NoOp       bool
	Reason     string
	RecordOps  []effects.RecordEffect
	PlaceOps   []effects.PlaceEffect
	PruneOps   []effects.PruneGroupEffect
	MessageOps []effects.MessageEffect
}

// Effects returns all effects as a flat slice for execution.
func (p MovePlan) Effects() []effects.Effect {
	out := make([]effects.Effect, 0, len(p.RecordOps)+len(p.PlaceOps)+len(p.PruneOps)+len(p.MessageOps))
	for _, e := range p.RecordOps {
		out = append(out, e)
	}
	for _, e := range p.PlaceOps {
		out = append(out, e)
	}
	for _, e := range p.PruneOps {
		out = append(out, e)
	}
	for _, e := range p.MessageOps {
		out = append(out, e)
	}
	return out
}

// SolvePlanInput contains the inputs needed to plan a solve.
type SolvePlanInput struct {
	Puzzle          Puzzle
	Answer          string
	Origin          *category.Group // group currently holding the workspace, if known
	StatusChannelID string
}

// GenerateSolvePlan plans the solve transition. A workspace already in a
// solved-archive group yields a no-op plan.
func GenerateSolvePlan(in SolvePlanInput) MovePlan {
	p := in.Puzzle
	plan := MovePlan{PuzzleID: p.ID}
	if in.Origin != nil && in.Origin.Kind == category.SolvedArchive {
		plan.NoOp = true
		plan.Reason = fmt.Sprintf("puzzle %s is already archived in %s", p.Name, in.Origin.Name)
		return plan
	}

	answer := NormalizeAnswer(in.Answer)
	plan.RecordOps = []effects.RecordEffect{
		{Entity: "puzzle", ID: p.ID, Field: "answer", Value: answer},
		{Entity: "puzzle", ID: p.ID, Field: "status", Value: string(StatusSolved)},
	}

	if p.ChannelID != "" {
		plan.PlaceOps = append(plan.PlaceOps, effects.PlaceEffect{
			ChannelID: p.ChannelID, Round: p.Round, Archive: true, Position: 0,
		})
		if prune, ok := pruneAfterLeaving(in.Origin, p.ChannelID); ok {
			plan.PruneOps = append(plan.PruneOps, prune)
		}
		plan.MessageOps = append(plan.MessageOps, effects.MessageEffect{
			ChannelID: p.ChannelID, Content: SolvedInChannel(answer),
		})
	}
	if in.StatusChannelID != "" {
		plan.MessageOps = append(plan.MessageOps, effects.MessageEffect{
			ChannelID: in.StatusChannelID, Content: SolvedBroadcast(p.Name, answer),
		})
	}
	return plan
}

// UnsolvePlanInput contains the inputs needed to plan an unsolve.
type UnsolvePlanInput struct {
	Puzzle Puzzle
	Origin *category.Group
}

// GenerateUnsolvePlan plans leaving the solved state: the answer is cleared,
// a working status restored and the workspace moved back to the front of an
// active group for its round.
func GenerateUnsolvePlan(in UnsolvePlanInput) MovePlan {
	p := in.Puzzle
	plan := MovePlan{PuzzleID: p.ID}
	archived := in.Origin != nil && in.Origin.Kind == category.SolvedArchive
	if !p.IsSolved() && !archived {
		plan.NoOp = true
		plan.Reason = fmt.Sprintf("puzzle %s is not solved", p.Name)
		return plan
	}

	plan.RecordOps = []effects.RecordEffect{
		{Entity: "puzzle", ID: p.ID, Field: "answer", Value: ""},
		{Entity: "puzzle", ID: p.ID, Field: "status", Value: string(ReopenStatus(p.Location))},
	}
	if p.ChannelID != "" {
		plan.PlaceOps = append(plan.PlaceOps, effects.PlaceEffect{
			ChannelID: p.ChannelID, Round: p.Round, Archive: false, Position: 0,
		})
		if prune, ok := pruneAfterLeaving(in.Origin, p.ChannelID); ok {
			plan.PruneOps = append(plan.PruneOps, prune)
		}
	}
	return plan
}

// pruneAfterLeaving returns a prune effect for origin when channelID is its
// last member and origin is not a root.
func pruneAfterLeaving(origin *category.Group, channelID string) (effects.PruneGroupEffect, bool) {
	if origin == nil || !origin.Classified {
		return effects.PruneGroupEffect{}, false
	}
	remaining := category.Group{Name: origin.Name, Root: origin.Root}
	for _, id := range origin.MemberChannels {
		if id != channelID {
			remaining.MemberChannels = append(remaining.MemberChannels, id)
		}
	}
	if !category.CanPruneGroup(remaining).Allowed {
		return effects.PruneGroupEffect{}, false
	}
	return effects.PruneGroupEffect{
		GroupID: origin.ID,
		Round:   origin.Round,
		Archive: origin.Kind == category.SolvedArchive,
	}, true
}

// PublishPlanInput contains the inputs needed to announce a new puzzle.
type PublishPlanInput struct {
	Puzzle          Puzzle
	NewChannel      bool // the workspace was created for this publish
	Placed          bool // the workspace already sits in an active group for its round
	StatusChannelID string
}

// PublishPlan holds the effects of publishing a puzzle.
type PublishPlan struct {
	PuzzleID   string
	RecordOps  []effects.RecordEffect
	PlaceOps   []effects.PlaceEffect
	MessageOps []effects.MessageEffect
}

// Effects returns all effects as a flat slice for execution.
func (p PublishPlan) Effects() []effects.Effect {
	out := make([]effects.Effect, 0, len(p.RecordOps)+len(p.PlaceOps)+len(p.MessageOps))
	for _, e := range p.RecordOps {
		out = append(out, e)
	}
	for _, e := range p.PlaceOps {
		out = append(out, e)
	}
	for _, e := range p.MessageOps {
		out = append(out, e)
	}
	return out
}

// GeneratePublishPlan plans the cross-reference write, placement and
// announcements for a newly published puzzle. The caller creates the
// workspace channel first so its id is known.
func GeneratePublishPlan(in PublishPlanInput) PublishPlan {
	p := in.Puzzle
	plan := PublishPlan{PuzzleID: p.ID}
	if in.NewChannel {
		plan.RecordOps = append(plan.RecordOps, effects.RecordEffect{
			Entity: "puzzle", ID: p.ID, Field: "chat_channel_id", Value: p.ChannelID,
		})
	}
	if !in.Placed {
		plan.PlaceOps = append(plan.PlaceOps, effects.PlaceEffect{
			ChannelID: p.ChannelID, Round: p.Round, Position: 0,
		})
	}

	content := NewPuzzleAnnouncement(p.Name)
	embed := BuildEmbed(p)
	plan.MessageOps = append(plan.MessageOps, effects.MessageEffect{
		ChannelID: p.ChannelID, Content: content, Embed: embed, Pin: true,
	})
	if in.StatusChannelID != "" {
		plan.MessageOps = append(plan.MessageOps, effects.MessageEffect{
			ChannelID: in.StatusChannelID, Content: content, Embed: embed,
		})
	}
	plan.MessageOps = append(plan.MessageOps, effects.MessageEffect{
		ChannelID: p.ChannelID, Content: JoinPrompt, React: JoinEmoji,
	})
	return plan
}

// RoundAnnouncement returns the status-channel message for a new round.
func RoundAnnouncement(round, statusChannelID string) effects.MessageEffect {
	return effects.MessageEffect{
		ChannelID: statusChannelID,
		Content:   NewRoundAnnouncement(round),
		Embed: &effects.Embed{
			Title: fmt.Sprintf("Round: _`%s`_", round),
			Color: RoundColor(round),
		},
	}
}
