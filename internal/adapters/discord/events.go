package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/example/puzzbot/internal/ports/primary"
)

// Run connects, feeds guild events to h until ctx is done, then disconnects.
// Each event gets its own context bounded by timeout.
func (g *Gateway) Run(ctx context.Context, h primary.EventHandler, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	eventCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(ctx, timeout)
	}

	removers := []func(){
		g.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			if m.GuildID != g.guildID || m.Author == nil {
				return
			}
			c, cancel := eventCtx()
			defer cancel()
			h.HandleMessage(c, primary.MessageEvent{
				ID:        m.ID,
				ChannelID: m.ChannelID,
				Author:    g.member(m.Author, m.Member),
				Content:   m.Content,
			})
		}),
		g.session.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
			if r.GuildID != g.guildID {
				return
			}
			user := &discordgo.User{ID: r.UserID}
			if r.Member != nil && r.Member.User != nil {
				user = r.Member.User
			}
			c, cancel := eventCtx()
			defer cancel()
			h.HandleReaction(c, primary.ReactionEvent{
				ChannelID: r.ChannelID,
				MessageID: r.MessageID,
				Emoji:     r.Emoji.Name,
				Member:    g.member(user, r.Member),
				SelfID:    g.SelfID(),
			})
		}),
		g.session.AddHandler(func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
			if v.GuildID != g.guildID {
				return
			}
			var before string
			if v.BeforeUpdate != nil {
				before = v.BeforeUpdate.ChannelID
			}
			if before == v.ChannelID {
				return // mute, deafen and similar
			}
			c, cancel := eventCtx()
			defer cancel()
			h.HandleVoiceState(c, primary.VoiceStateEvent{
				UserID: v.UserID,
				Before: g.membership(c, before),
				After:  g.membership(c, v.ChannelID),
			})
		}),
	}
	defer func() {
		for _, remove := range removers {
			remove()
		}
	}()

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	g.logger.Info("connected to discord", "guild_id", g.guildID, "user_id", g.SelfID())

	<-ctx.Done()
	if err := g.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord gateway: %w", err)
	}
	return nil
}

// membership snapshots a voice channel's occupancy after a move.
func (g *Gateway) membership(ctx context.Context, channelID string) *primary.MembershipChange {
	if channelID == "" {
		return nil
	}
	loc, err := g.Location(ctx, channelID)
	if err != nil || loc == nil {
		return nil
	}
	return &primary.MembershipChange{
		ChannelID: loc.ID,
		Location:  loc.Name,
		Category:  loc.Category,
		Occupants: loc.Occupants,
	}
}

// member resolves role ids to role names.
func (g *Gateway) member(u *discordgo.User, m *discordgo.Member) primary.Member {
	out := primary.Member{ID: u.ID, Name: u.Username, Bot: u.Bot}
	if m == nil {
		return out
	}
	if m.Nick != "" {
		out.Name = m.Nick
	}
	for _, id := range m.Roles {
		if role, err := g.session.State.Role(g.guildID, id); err == nil {
			out.Roles = append(out.Roles, role.Name)
		}
	}
	return out
}
