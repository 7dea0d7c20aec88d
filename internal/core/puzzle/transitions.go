package puzzle

import "strings"

// Puzzle is the core's typed view of a puzzle record.
type Puzzle struct {
	ID        string
	Name      string
	Round     string
	Status    Status
	Answer    string
	Location  string
	Comments  string
	Tags      []string
	IsMeta    bool
	ChannelID string
	PuzzleURI string
	DriveURI  string
}

// IsSolved reports whether the record is in the terminal state.
func (p Puzzle) IsSolved() bool { return p.Status == StatusSolved }

// NormalizeAnswer trims and uppercases a submitted answer.
func NormalizeAnswer(answer string) string {
	return strings.ToUpper(strings.TrimSpace(answer))
}

// ReopenStatus is the working state restored by unsolve. A puzzle still
// bound to a table is being worked on; otherwise it starts over as New.
func ReopenStatus(location string) Status {
	if strings.TrimSpace(location) != "" {
		return StatusUnderControl
	}
	return StatusNew
}

// ChannelName returns the workspace channel name for a status.
func ChannelName(name string, s Status) string {
	return Glyph(s) + name
}

// SameChannelName compares channel names the way the platform stores them:
// lowercased, with runs of spaces collapsed to a single dash.
func SameChannelName(a, b string) bool {
	return slug(a) == slug(b)
}

func slug(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}
