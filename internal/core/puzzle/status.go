// Package puzzle contains the pure business logic for puzzle status changes.
// This is part of the Functional Core - no I/O, only pure functions.
package puzzle

import "strings"

// Status is a puzzle's working state as stored in the record store.
type Status string

const (
	StatusNew          Status = "New"
	StatusNeedsEyes    Status = "Needs eyes"
	StatusCritical     Status = "Critical"
	StatusWTF          Status = "WTF"
	StatusUnnecessary  Status = "Unnecessary"
	StatusUnderControl Status = "Under control"
	StatusGrind        Status = "Grind"
	StatusWaitingForHQ Status = "Waiting for HQ"
	StatusSolved       Status = "Solved"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusNew,
	StatusNeedsEyes,
	StatusCritical,
	StatusWTF,
	StatusUnnecessary,
	StatusUnderControl,
	StatusGrind,
	StatusWaitingForHQ,
	StatusSolved,
}

// ParseStatus validates a stored status value. Matching is case-insensitive.
func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, true
		}
	}
	return "", false
}

var markAliases = map[string]Status{
	"eyes":           StatusNeedsEyes,
	"needs eyes":     StatusNeedsEyes,
	"needseyes":      StatusNeedsEyes,
	"critical":       StatusCritical,
	"wtf":            StatusWTF,
	"unnecessary":    StatusUnnecessary,
	"unecessary":     StatusUnnecessary,
	"unnecesary":     StatusUnnecessary,
	"under control":  StatusUnderControl,
	"undercontrol":   StatusUnderControl,
	"under":          StatusUnderControl,
	"control":        StatusUnderControl,
	"grind":          StatusGrind,
	"waiting":        StatusWaitingForHQ,
	"waiting for hq": StatusWaitingForHQ,
	"hq":             StatusWaitingForHQ,
	"new":            StatusNew,
}

// ParseMarkAs maps free text from a "mark as" command to a status. Solved is
// never returned; solving goes through its own privileged command.
func ParseMarkAs(input string) (Status, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(input), " "))
	st, ok := markAliases[key]
	return st, ok
}

// Glyph is the channel-name prefix for a status, or "" for none.
func Glyph(s Status) string {
	switch s {
	case StatusNeedsEyes:
		return "🔴 "
	case StatusCritical:
		return "🔥 "
	case StatusUnnecessary:
		return "⚪️ "
	case StatusWTF:
		return "💣 "
	default:
		return ""
	}
}

// IsAttention reports whether s is one of the statuses listed on the
// high-priority board.
func IsAttention(s Status) bool {
	return s == StatusCritical || s == StatusNeedsEyes || s == StatusWTF
}
