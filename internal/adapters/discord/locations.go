package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/example/puzzbot/internal/ports/secondary"
)

// auditPageSize is how many channel_update entries one rename check reads.
const auditPageSize = 50

// locationsFromGuild lists voice channels with their live occupant counts.
func locationsFromGuild(guild *discordgo.Guild) []secondary.VoiceLocation {
	names := make(map[string]string, len(guild.Channels))
	for _, ch := range guild.Channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory {
			names[ch.ID] = ch.Name
		}
	}
	counts := make(map[string]int)
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != "" {
			counts[vs.ChannelID]++
		}
	}

	var voice []*discordgo.Channel
	for _, ch := range guild.Channels {
		if isVoice(ch) {
			voice = append(voice, ch)
		}
	}
	byPosition(voice)

	out := make([]secondary.VoiceLocation, 0, len(voice))
	for _, ch := range voice {
		out = append(out, secondary.VoiceLocation{
			ID:        ch.ID,
			Name:      ch.Name,
			Category:  names[ch.ParentID],
			Occupants: counts[ch.ID],
		})
	}
	return out
}

func (g *Gateway) locations() ([]secondary.VoiceLocation, error) {
	guild, err := g.guild()
	if err != nil {
		return nil, err
	}
	g.session.State.RLock()
	defer g.session.State.RUnlock()
	return locationsFromGuild(guild), nil
}

// ListLocations returns every voice channel.
func (g *Gateway) ListLocations(ctx context.Context) ([]secondary.VoiceLocation, error) {
	return g.locations()
}

// Location returns one voice channel by id, or nil when it is not a voice
// channel of the guild.
func (g *Gateway) Location(ctx context.Context, channelID string) (*secondary.VoiceLocation, error) {
	locs, err := g.locations()
	if err != nil {
		return nil, err
	}
	for _, l := range locs {
		if l.ID == channelID {
			return &l, nil
		}
	}
	return nil, nil
}

// LocationOf returns the voice channel userID is connected to, or nil.
func (g *Gateway) LocationOf(ctx context.Context, userID string) (*secondary.VoiceLocation, error) {
	vs, err := g.session.State.VoiceState(g.guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return nil, nil
	}
	return g.Location(ctx, vs.ChannelID)
}

// LastRename reads the audit log for the bot's own renames of channelID.
func (g *Gateway) LastRename(ctx context.Context, channelID string, since time.Time) (time.Time, bool, error) {
	self := g.SelfID()
	log, err := g.session.GuildAuditLog(g.guildID, self, "", int(discordgo.AuditLogActionChannelUpdate), auditPageSize, discordgo.WithContext(ctx))
	if err != nil {
		return time.Time{}, false, classify("read audit log", err)
	}
	at, ok := lastRenameIn(log.AuditLogEntries, channelID, self, since)
	return at, ok, nil
}
