package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// GetChannel returns a channel by id.
func (g *Gateway) GetChannel(ctx context.Context, id string) (*secondary.ChannelInfo, error) {
	ch, err := g.channel(ctx, id)
	if err != nil {
		return nil, err
	}
	return toChannelInfo(ch), nil
}

// CreateChannel creates a text channel, under GroupID when it is set.
func (g *Gateway) CreateChannel(ctx context.Context, req secondary.CreateChannelRequest) (*secondary.ChannelInfo, error) {
	ch, err := g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name:     req.Name,
		Type:     discordgo.ChannelTypeGuildText,
		Topic:    req.Topic,
		ParentID: req.GroupID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("create channel "+req.Name, err)
	}
	g.remember(ch)
	g.logger.InfoContext(ctx, "created channel", "channel_id", ch.ID, "name", ch.Name)
	return toChannelInfo(ch), nil
}

// RenameChannel sets a channel's name. Discord allows two renames per ten
// minutes per channel; callers guard for that.
func (g *Gateway) RenameChannel(ctx context.Context, id, name string) error {
	ch, err := g.session.ChannelEdit(id, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return classify("rename channel "+id, err)
	}
	g.remember(ch)
	return nil
}

// MoveChannel moves a channel into groupID so it lands at index position
// among the group's members. A negative or out of range position appends.
func (g *Gateway) MoveChannel(ctx context.Context, id, groupID string, position int) error {
	guild, err := g.guild()
	if err != nil {
		return err
	}
	g.session.State.RLock()
	abs := absolutePosition(guild.Channels, id, groupID, position)
	g.session.State.RUnlock()

	ch, err := g.session.ChannelEdit(id, &discordgo.ChannelEdit{ParentID: groupID, Position: &abs}, discordgo.WithContext(ctx))
	if err != nil {
		return classify("move channel "+id, err)
	}
	g.remember(ch)
	return nil
}

// absolutePosition maps an index among groupID's members, not counting id
// itself, to the absolute channel position Discord expects.
func absolutePosition(chs []*discordgo.Channel, id, groupID string, position int) int {
	var siblings []*discordgo.Channel
	for _, ch := range chs {
		if ch.ParentID == groupID && ch.ID != id && ch.Type != discordgo.ChannelTypeGuildCategory {
			siblings = append(siblings, ch)
		}
	}
	byPosition(siblings)

	switch {
	case position >= 0 && position < len(siblings):
		return siblings[position].Position
	case len(siblings) > 0:
		return siblings[len(siblings)-1].Position + 1
	}
	return 0
}

// DeleteChannel deletes a channel. Deleting one that is already gone is not
// an error.
func (g *Gateway) DeleteChannel(ctx context.Context, id string) error {
	ch, err := g.session.ChannelDelete(id, discordgo.WithContext(ctx))
	if err != nil {
		err = classify("delete channel "+id, err)
		if apperr.KindOf(err) == apperr.KindNotFound {
			g.forget(&discordgo.Channel{ID: id, GuildID: g.guildID})
			return nil
		}
		return err
	}
	g.forget(ch)
	return nil
}

// ListGroups returns every category with its members in listing order.
func (g *Gateway) ListGroups(ctx context.Context) ([]secondary.GroupInfo, error) {
	guild, err := g.guild()
	if err != nil {
		return nil, err
	}
	g.session.State.RLock()
	chs := append([]*discordgo.Channel(nil), guild.Channels...)
	g.session.State.RUnlock()
	return groupsFromChannels(chs), nil
}

// CloneGroup creates a category carrying the permission overwrites of
// FromID.
func (g *Gateway) CloneGroup(ctx context.Context, req secondary.CloneGroupRequest) (*secondary.GroupInfo, error) {
	src, err := g.channel(ctx, req.FromID)
	if err != nil {
		return nil, err
	}
	cat, err := g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name:                 req.Name,
		Type:                 discordgo.ChannelTypeGuildCategory,
		Position:             req.Position,
		PermissionOverwrites: src.PermissionOverwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("clone category "+req.Name, err)
	}
	g.remember(cat)
	g.logger.InfoContext(ctx, "created category", "group_id", cat.ID, "name", cat.Name, "from", req.FromID)
	return &secondary.GroupInfo{ID: cat.ID, Name: cat.Name, Position: cat.Position}, nil
}

// DeleteGroup deletes a category.
func (g *Gateway) DeleteGroup(ctx context.Context, id string) error {
	return g.DeleteChannel(ctx, id)
}
