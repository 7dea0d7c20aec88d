package primary

import "context"

// Member is the chat user behind an event. Roles holds role names.
type Member struct {
	ID    string
	Name  string
	Roles []string
	Bot   bool
}

// MessageEvent is a new chat message in the guild.
type MessageEvent struct {
	ID        string
	ChannelID string
	Author    Member
	Content   string
}

// ReactionEvent is a reaction added to a message.
type ReactionEvent struct {
	ChannelID string
	MessageID string
	Emoji     string
	Member    Member
	SelfID    string // the bot's own user id
}

// VoiceStateEvent reports a member moving between voice locations. Before
// and After carry occupant counts taken after the move; either may be nil.
type VoiceStateEvent struct {
	UserID string
	Before *MembershipChange
	After  *MembershipChange
}

// EventHandler is the driving port the gateway event source feeds.
type EventHandler interface {
	HandleMessage(ctx context.Context, ev MessageEvent)
	HandleReaction(ctx context.Context, ev ReactionEvent)
	HandleVoiceState(ctx context.Context, ev VoiceStateEvent)
}
