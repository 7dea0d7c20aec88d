package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/example/puzzbot/internal/core/effects"
	"github.com/example/puzzbot/internal/ports/secondary"
)

func toMessageEmbed(e *effects.Embed) *discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		URL:         e.URL,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return out
}

func toMessageInfo(m *discordgo.Message) *secondary.MessageInfo {
	info := &secondary.MessageInfo{ID: m.ID, ChannelID: m.ChannelID, Content: m.Content}
	if m.Author != nil {
		info.AuthorID = m.Author.ID
	}
	return info
}

// Send posts a message, optionally as a reply.
func (g *Gateway) Send(ctx context.Context, msg secondary.OutboundMessage) (*secondary.MessageInfo, error) {
	data := &discordgo.MessageSend{Content: msg.Content}
	if e := toMessageEmbed(msg.Embed); e != nil {
		data.Embeds = []*discordgo.MessageEmbed{e}
	}
	if msg.ReplyTo != "" {
		data.Reference = &discordgo.MessageReference{MessageID: msg.ReplyTo, ChannelID: msg.ChannelID, GuildID: g.guildID}
	}
	m, err := g.session.ChannelMessageSendComplex(msg.ChannelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("send message to "+msg.ChannelID, err)
	}
	return toMessageInfo(m), nil
}

// GetMessage fetches one message.
func (g *Gateway) GetMessage(ctx context.Context, channelID, messageID string) (*secondary.MessageInfo, error) {
	m, err := g.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify("get message "+messageID, err)
	}
	return toMessageInfo(m), nil
}

// Pin pins a message.
func (g *Gateway) Pin(ctx context.Context, channelID, messageID string) error {
	return classify("pin message "+messageID, g.session.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx)))
}

// Unpin unpins a message.
func (g *Gateway) Unpin(ctx context.Context, channelID, messageID string) error {
	return classify("unpin message "+messageID, g.session.ChannelMessageUnpin(channelID, messageID, discordgo.WithContext(ctx)))
}

// React adds the bot's reaction to a message.
func (g *Gateway) React(ctx context.Context, channelID, messageID, emoji string) error {
	return classify("react to message "+messageID, g.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx)))
}
