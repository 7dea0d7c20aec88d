package occupancy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/puzzbot/internal/core/puzzle"
)

// TableRow is one location on the board.
type TableRow struct {
	Location  string
	Occupants int
	Known     bool // the location is a live table, so Occupants is meaningful
	Puzzles   []puzzle.Puzzle
}

// QuietRound lists unsolved puzzles of a round not bound anywhere.
type QuietRound struct {
	Round   string
	Puzzles []puzzle.Puzzle
}

// Board is the derived view of which puzzles are being worked where.
type Board struct {
	Tables []TableRow
	Quiet  []QuietRound
}

// BuildBoard derives the board from live tables and current records.
// solvedRounds are omitted from the quiet list.
func BuildBoard(tables []Location, puzzles []puzzle.Puzzle, solvedRounds []string) Board {
	rows := make([]TableRow, 0, len(tables))
	index := make(map[string]int, len(tables))
	for _, t := range tables {
		index[t.Name] = len(rows)
		rows = append(rows, TableRow{Location: t.Name, Occupants: t.Occupants, Known: true})
	}

	solved := make(map[string]bool, len(solvedRounds))
	for _, r := range solvedRounds {
		solved[r] = true
	}
	quiet := map[string][]puzzle.Puzzle{}
	var quietOrder []string

	for _, p := range puzzles {
		if p.IsSolved() || Redirected(p) {
			continue
		}
		if p.Location == "" {
			if solved[p.Round] {
				continue
			}
			if _, ok := quiet[p.Round]; !ok {
				quietOrder = append(quietOrder, p.Round)
			}
			quiet[p.Round] = append(quiet[p.Round], p)
			continue
		}
		i, ok := index[p.Location]
		if !ok {
			i = len(rows)
			index[p.Location] = i
			rows = append(rows, TableRow{Location: p.Location})
		}
		rows[i].Puzzles = append(rows[i].Puzzles, p)
	}

	board := Board{}
	for _, r := range rows {
		if len(r.Puzzles) > 0 {
			board.Tables = append(board.Tables, r)
		}
	}
	for _, round := range quietOrder {
		ps := quiet[round]
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].ChannelID > ps[j].ChannelID })
		board.Quiet = append(board.Quiet, QuietRound{Round: round, Puzzles: ps})
	}
	return board
}

// maxQuietLength bounds the quiet section so the board fits in one message.
const maxQuietLength = 1600

// RenderBoard formats the board as chat markdown.
func RenderBoard(b Board, asOf string) string {
	var quiet strings.Builder
	for _, q := range b.Quiet {
		line := fmt.Sprintf("* `%s`: %s\n", q.Round, mentions(q.Puzzles))
		if quiet.Len()+len(line) > maxQuietLength {
			quiet.WriteString("...and more (trimmed for length)\n")
			break
		}
		quiet.WriteString(line)
	}
	quietText := ""
	if quiet.Len() > 0 {
		quietText = "\n\nPuzzles which aren't being worked on anywhere:\n" + quiet.String()
	}

	if len(b.Tables) == 0 {
		return "There aren't any open puzzles being worked on at any of the tables!\n" +
			"Try joining a table and using `!joinus` in a puzzle channel." + strings.TrimRight(quietText, "\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Which puzzles are where (as of %s):\n\n", asOf)
	for _, t := range b.Tables {
		prefix := "In"
		if t.Known {
			prefix = fmt.Sprintf("`%2d`👩‍💻 in", t.Occupants)
		}
		fmt.Fprintf(&sb, "%s **%s**: %s\n", prefix, t.Location, mentions(t.Puzzles))
	}
	sb.WriteString(quietText)
	return sb.String()
}

func mentions(ps []puzzle.Puzzle) string {
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.ChannelID != "" {
			parts = append(parts, fmt.Sprintf("<#%s>", p.ChannelID))
		} else {
			parts = append(parts, fmt.Sprintf("`%s`", p.Name))
		}
	}
	return strings.Join(parts, ", ")
}

// RenderWhereIs answers where a single puzzle is being worked.
func RenderWhereIs(p puzzle.Puzzle) string {
	if p.Location == "" {
		return fmt.Sprintf("**`%s`** does not have a location set!", p.Name)
	}
	return fmt.Sprintf("**`%s`** can be found in **%s**", p.Name, p.Location)
}

var hipriPrefix = map[puzzle.Status]string{
	puzzle.StatusCritical:  "🔥",
	puzzle.StatusNeedsEyes: "🔴",
	puzzle.StatusWTF:       "☣️",
}

// RenderHipri lists attention-status puzzles grouped by status.
func RenderHipri(puzzles []puzzle.Puzzle) string {
	var list []puzzle.Puzzle
	for _, p := range puzzles {
		if puzzle.IsAttention(p.Status) {
			list = append(list, p)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Status != list[j].Status {
			return list[i].Status < list[j].Status
		}
		return list[i].ID < list[j].ID
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Priority Puzzles (%d):**\n", len(list))
	var status puzzle.Status
	for _, p := range list {
		if p.Status != status {
			sb.WriteString("\n")
			status = p.Status
		}
		fmt.Fprintf(&sb, "%s %s: `%s` (<#%s>)", hipriPrefix[p.Status], p.Status, p.Name, p.ChannelID)
		if p.Location != "" {
			fmt.Fprintf(&sb, " in **%s**", p.Location)
		}
		if p.Comments != "" {
			comments := strings.ReplaceAll(p.Comments, "`", "'")
			if r := []rune(comments); len(r) > 200 {
				comments = string(r[:200])
			}
			fmt.Fprintf(&sb, "\n`        Comments: %s`", comments)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
