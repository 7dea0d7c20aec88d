// Package discord adapts a Discord guild to the platform ports. Reads come
// from the gateway state cache; every mutation goes through the REST API and
// its result is written back into the cache so later reads see it.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// Intents the bot identifies with.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsMessageContent

// Gateway implements secondary.Platform for one guild.
type Gateway struct {
	session *discordgo.Session
	guildID string
	logger  *slog.Logger
}

var _ secondary.Platform = (*Gateway)(nil)

// New creates a session for token. It does not connect; see Run.
func New(token, guildID string, logger *slog.Logger) (*Gateway, error) {
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	return &Gateway{session: s, guildID: guildID, logger: logger}, nil
}

// SelfID returns the bot's user id once connected.
func (g *Gateway) SelfID() string {
	if g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.ID
}

// classify maps REST failures onto the error taxonomy. A 404 is NotFound so
// callers can tell a deleted channel from an outage.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var rerr *discordgo.RESTError
	if errors.As(err, &rerr) && rerr.Response != nil {
		switch rerr.Response.StatusCode {
		case http.StatusNotFound:
			return apperr.Wrap(apperr.KindNotFound, op, err)
		case http.StatusForbidden:
			return apperr.Wrap(apperr.KindForbidden, op, err)
		}
	}
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return apperr.Wrap(apperr.KindNotFound, op, err)
	}
	return apperr.Wrap(apperr.KindUpstreamUnavailable, op, err)
}

func (g *Gateway) guild() (*discordgo.Guild, error) {
	guild, err := g.session.State.Guild(g.guildID)
	if err != nil {
		return nil, classify("load guild", err)
	}
	return guild, nil
}

// channel looks in the cache first and falls back to REST.
func (g *Gateway) channel(ctx context.Context, id string) (*discordgo.Channel, error) {
	if ch, err := g.session.State.Channel(id); err == nil {
		return ch, nil
	}
	ch, err := g.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("get channel "+id, err)
	}
	g.remember(ch)
	return ch, nil
}

func (g *Gateway) remember(ch *discordgo.Channel) {
	if ch == nil {
		return
	}
	if err := g.session.State.ChannelAdd(ch); err != nil {
		g.logger.Warn("failed to cache channel", "channel_id", ch.ID, "error", err)
	}
}

func (g *Gateway) forget(ch *discordgo.Channel) {
	if ch == nil {
		return
	}
	if err := g.session.State.ChannelRemove(ch); err != nil && !errors.Is(err, discordgo.ErrStateNotFound) {
		g.logger.Warn("failed to drop cached channel", "channel_id", ch.ID, "error", err)
	}
}

func toChannelInfo(ch *discordgo.Channel) *secondary.ChannelInfo {
	info := &secondary.ChannelInfo{
		ID:       ch.ID,
		Name:     ch.Name,
		GroupID:  ch.ParentID,
		Position: ch.Position,
		Voice:    isVoice(ch),
	}
	if ts, err := discordgo.SnowflakeTimestamp(ch.ID); err == nil {
		info.CreatedAt = ts
	}
	return info
}

func isVoice(ch *discordgo.Channel) bool {
	return ch.Type == discordgo.ChannelTypeGuildVoice || ch.Type == discordgo.ChannelTypeGuildStageVoice
}

// byPosition orders channels the way the client lists them.
func byPosition(chs []*discordgo.Channel) {
	sort.SliceStable(chs, func(i, j int) bool {
		if chs[i].Position != chs[j].Position {
			return chs[i].Position < chs[j].Position
		}
		return chs[i].ID < chs[j].ID
	})
}

// groupsFromChannels builds the category listing from guild channels.
func groupsFromChannels(chs []*discordgo.Channel) []secondary.GroupInfo {
	var cats []*discordgo.Channel
	members := map[string][]*discordgo.Channel{}
	for _, ch := range chs {
		if ch.Type == discordgo.ChannelTypeGuildCategory {
			cats = append(cats, ch)
			continue
		}
		if ch.ParentID != "" {
			members[ch.ParentID] = append(members[ch.ParentID], ch)
		}
	}
	byPosition(cats)

	out := make([]secondary.GroupInfo, 0, len(cats))
	for _, c := range cats {
		kids := members[c.ID]
		byPosition(kids)
		ids := make([]string, len(kids))
		for i, k := range kids {
			ids[i] = k.ID
		}
		out = append(out, secondary.GroupInfo{ID: c.ID, Name: c.Name, Position: c.Position, MemberChannels: ids})
	}
	return out
}

// lastRenameIn finds the newest rename of channelID by selfID after since.
func lastRenameIn(entries []*discordgo.AuditLogEntry, channelID, selfID string, since time.Time) (time.Time, bool) {
	var newest time.Time
	for _, e := range entries {
		if e.TargetID != channelID || e.UserID != selfID || !renamesChannel(e) {
			continue
		}
		at, err := discordgo.SnowflakeTimestamp(e.ID)
		if err != nil || !at.After(since) {
			continue
		}
		if at.After(newest) {
			newest = at
		}
	}
	return newest, !newest.IsZero()
}

func renamesChannel(e *discordgo.AuditLogEntry) bool {
	for _, c := range e.Changes {
		if c.Key != nil && *c.Key == discordgo.AuditLogChangeKeyName {
			return true
		}
	}
	return false
}
