// Package effects defines the side effects the core asks the shell to perform.
// Planners return effects as data; the executor in internal/app interprets
// them against the record store and the chat platform.
package effects

// Effect is implemented by every effect value.
type Effect interface {
	// EffectType returns a short identifier used in logs and partial-failure
	// reports.
	EffectType() string
}

// LogEffect asks the shell to emit a log line.
type LogEffect struct {
	Level   string // "debug", "info", "warn", "error"
	Message string
	Fields  map[string]any
}

func (e LogEffect) EffectType() string { return "log" }

// RecordEffect sets one field of a record in the record store.
type RecordEffect struct {
	Entity string // "puzzle" or "round"
	ID     string
	Field  string // e.g. "status", "answer", "xyzloc"
	Value  string
}

func (e RecordEffect) EffectType() string { return "record" }

// Channel operations.
const (
	ChannelRename = "rename"
	ChannelDelete = "delete"
)

// ChannelEffect mutates a workspace channel in place.
type ChannelEffect struct {
	Operation string
	ChannelID string
	Name      string // for rename
}

func (e ChannelEffect) EffectType() string { return "channel" }

// PlaceEffect moves a workspace channel into a group for Round of the given
// kind, resolving or creating the group at execution time.
type PlaceEffect struct {
	ChannelID string
	Round     string
	Archive   bool
	Position  int
}

func (e PlaceEffect) EffectType() string { return "place" }

// PruneGroupEffect deletes a group when it holds no channels at execution
// time. Root groups are never pruned.
type PruneGroupEffect struct {
	GroupID string
	Round   string
	Archive bool
}

func (e PruneGroupEffect) EffectType() string { return "prune_group" }

// MessageEffect posts a message.
type MessageEffect struct {
	ChannelID string
	Content   string
	Embed     *Embed
	Pin       bool
	React     string // emoji to add to the posted message
}

func (e MessageEffect) EffectType() string { return "message" }

// Embed is a platform-neutral rich message attachment.
type Embed struct {
	Title       string
	URL         string
	Description string
	Color       int
	Fields      []EmbedField
}

// EmbedField is one name/value cell of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// CompositeEffect groups effects to run in order.
type CompositeEffect struct {
	Effects []Effect
}

func (e CompositeEffect) EffectType() string { return "composite" }

// NoEffect is an explicit no-op.
type NoEffect struct{}

func (e NoEffect) EffectType() string { return "none" }
