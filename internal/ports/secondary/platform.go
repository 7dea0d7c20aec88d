package secondary

import (
	"context"
	"time"

	"github.com/example/puzzbot/internal/core/effects"
)

// ChannelInfo is a workspace or voice channel as the platform reports it.
type ChannelInfo struct {
	ID        string
	Name      string
	GroupID   string
	Position  int
	Voice     bool
	CreatedAt time.Time
}

// GroupInfo is a platform category with its members in display order.
type GroupInfo struct {
	ID             string
	Name           string
	Position       int
	MemberChannels []string
}

// CreateChannelRequest describes a new workspace channel.
type CreateChannelRequest struct {
	Name    string
	Topic   string
	GroupID string
}

// CloneGroupRequest describes a new group copied from an existing one.
type CloneGroupRequest struct {
	FromID   string
	Name     string
	Position int
}

// ChannelGateway defines the secondary port for channel mutations.
type ChannelGateway interface {
	GetChannel(ctx context.Context, id string) (*ChannelInfo, error)
	CreateChannel(ctx context.Context, req CreateChannelRequest) (*ChannelInfo, error)
	RenameChannel(ctx context.Context, id, name string) error
	MoveChannel(ctx context.Context, id, groupID string, position int) error
	DeleteChannel(ctx context.Context, id string) error
}

// GroupGateway defines the secondary port for category listing and lifecycle.
type GroupGateway interface {
	// ListGroups returns every category in platform listing order.
	ListGroups(ctx context.Context) ([]GroupInfo, error)

	// CloneGroup creates a category inheriting permissions from FromID.
	CloneGroup(ctx context.Context, req CloneGroupRequest) (*GroupInfo, error)

	DeleteGroup(ctx context.Context, id string) error
}

// OutboundMessage is a message to post.
type OutboundMessage struct {
	ChannelID string
	Content   string
	Embed     *effects.Embed
	ReplyTo   string // message id, optional
}

// MessageInfo is a posted message.
type MessageInfo struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
}

// MessageGateway defines the secondary port for messaging.
type MessageGateway interface {
	Send(ctx context.Context, msg OutboundMessage) (*MessageInfo, error)
	GetMessage(ctx context.Context, channelID, messageID string) (*MessageInfo, error)
	Pin(ctx context.Context, channelID, messageID string) error
	Unpin(ctx context.Context, channelID, messageID string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
}

// VoiceLocation is a voice channel with its live occupant count.
type VoiceLocation struct {
	ID        string
	Name      string
	Category  string
	Occupants int
}

// LocationGateway defines the secondary port for live occupancy.
type LocationGateway interface {
	// ListLocations returns every voice channel.
	ListLocations(ctx context.Context) ([]VoiceLocation, error)

	// Location returns one voice channel by id.
	Location(ctx context.Context, channelID string) (*VoiceLocation, error)

	// LocationOf returns the voice channel a member is connected to, or nil.
	LocationOf(ctx context.Context, userID string) (*VoiceLocation, error)
}

// AuditGateway defines the secondary port for the platform audit log.
type AuditGateway interface {
	// LastRename returns when the bot last renamed channelID, if it did so
	// after since.
	LastRename(ctx context.Context, channelID string, since time.Time) (time.Time, bool, error)
}

// Platform bundles every platform capability the application needs.
type Platform interface {
	ChannelGateway
	GroupGateway
	MessageGateway
	LocationGateway
	AuditGateway
}
