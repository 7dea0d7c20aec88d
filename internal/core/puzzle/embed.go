package puzzle

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zeebo/blake3"

	"github.com/example/puzzbot/internal/core/effects"
)

// BuildEmbed renders the rich card shown with announcements and lookups.
func BuildEmbed(p Puzzle) *effects.Embed {
	var description string
	if p.Location != "" {
		description += fmt.Sprintf("Being worked in: **%s**\n", p.Location)
	}
	if p.Comments != "" {
		description += fmt.Sprintf("**Comments:** %s\n", p.Comments)
	}

	embed := &effects.Embed{
		Title:       fmt.Sprintf("Puzzle: _`%s`_", p.Name),
		URL:         p.PuzzleURI,
		Description: description,
		Color:       RoundColor(p.Round),
	}

	switch p.Status {
	case StatusNeedsEyes:
		embed.Fields = append(embed.Fields, effects.EmbedField{Name: "Status", Value: "❗ Needs eyes 👀"})
	case StatusCritical:
		embed.Fields = append(embed.Fields, effects.EmbedField{Name: "Status", Value: "⚠️  Critical 🚨"})
	case StatusUnnecessary:
		embed.Fields = append(embed.Fields, effects.EmbedField{Name: "Status", Value: "🤷 Unnecessary 🤷"})
	case StatusWTF:
		embed.Fields = append(embed.Fields, effects.EmbedField{Name: "Status", Value: "☣️  WTF ☣️"})
	case StatusSolved:
		embed.Fields = append(embed.Fields,
			effects.EmbedField{Name: "Status", Value: "✅ Solved", Inline: true},
			effects.EmbedField{Name: "Answer", Value: fmt.Sprintf("||`%s`||", p.Answer), Inline: true},
		)
	}

	if p.PuzzleURI != "" {
		embed.Fields = append(embed.Fields, effects.EmbedField{Name: "Puzzle URL", Value: p.PuzzleURI})
	}
	if p.DriveURI != "" {
		embed.Fields = append(embed.Fields, effects.EmbedField{
			Name: "Google Doc", Value: fmt.Sprintf("[Spreadsheet 📃](%s)", p.DriveURI), Inline: true,
		})
	}
	if p.ChannelID != "" {
		embed.Fields = append(embed.Fields, effects.EmbedField{
			Name: "Discord Channel", Value: fmt.Sprintf("<#%s>", p.ChannelID), Inline: true,
		})
	}
	embed.Fields = append(embed.Fields, effects.EmbedField{Name: "Round", Value: p.Round, Inline: true})
	return embed
}

// RoundColor derives a stable embed colour from the round name: the hash
// picks a hue, saturation and value are fixed.
func RoundColor(round string) int {
	sum := blake3.Sum256([]byte(round))
	hue := float64(binary.BigEndian.Uint64(sum[:8])) / math.Pow(2, 64)
	r, g, b := hsvToRGB(hue, 0.655, 1)
	return r<<16 | g<<8 | b
}

func hsvToRGB(h, s, v float64) (int, int, int) {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return int(math.Round(r * 255)), int(math.Round(g * 255)), int(math.Round(b * 255))
}
