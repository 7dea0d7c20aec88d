package puzzle

import (
	"regexp"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Match finds the puzzle a free-text query refers to. An exact name wins,
// then a substring match ignoring case and spaces, then the query as a
// case-insensitive regular expression, and last the best fuzzy subsequence
// match. Ties go to the first in list order.
func Match(puzzles []Puzzle, query string) (Puzzle, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Puzzle{}, false
	}
	for _, p := range puzzles {
		if strings.EqualFold(p.Name, query) {
			return p, true
		}
	}
	needle := squash(query)
	for _, p := range puzzles {
		if strings.Contains(squash(p.Name), needle) {
			return p, true
		}
	}
	if re, err := regexp.Compile("(?i)" + query); err == nil {
		for _, p := range puzzles {
			if re.MatchString(p.Name) {
				return p, true
			}
		}
	}
	names := make([]string, len(puzzles))
	for i, p := range puzzles {
		names[i] = p.Name
	}
	if matches := fuzzy.Find(strings.ToLower(needle), names); len(matches) > 0 {
		return puzzles[matches[0].Index], true
	}
	return Puzzle{}, false
}

func squash(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", ""))
}

var mentionPattern = regexp.MustCompile(`^<#(\d+)>$`)

// ChannelMention extracts the channel id from a "<#id>" mention.
func ChannelMention(s string) (string, bool) {
	m := mentionPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return m[1], true
}
