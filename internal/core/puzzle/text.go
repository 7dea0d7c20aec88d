package puzzle

import "fmt"

// Announcement is the text posted when a status changes.
type Announcement struct {
	Content   string
	WithEmbed bool
}

// StatusAnnouncement returns the announcement for a non-solved status.
func StatusAnnouncement(name string, s Status) Announcement {
	switch s {
	case StatusNeedsEyes:
		return Announcement{Content: fmt.Sprintf("**❗️ Puzzle _`%s`_ NEEDS EYES! 👀**", name), WithEmbed: true}
	case StatusCritical:
		return Announcement{Content: fmt.Sprintf("**🚨 Puzzle _`%s`_ IS CRITICAL! ⚠️**", name), WithEmbed: true}
	case StatusUnnecessary:
		return Announcement{Content: fmt.Sprintf("**🤷 Puzzle _`%s`_ is now UNNECESSARY! 🤷**", name)}
	case StatusWTF:
		return Announcement{Content: fmt.Sprintf("**💣 Puzzle _`%s`_ is WTF! ☣️**", name)}
	default:
		return Announcement{Content: fmt.Sprintf("**📝 Puzzle _`%s`_ is now %s.**", name, s)}
	}
}

// NewPuzzleAnnouncement is posted when a puzzle is published.
func NewPuzzleAnnouncement(name string) string {
	return fmt.Sprintf("**🚨 New Puzzle 🚨 _`%s`_ ADDED!**", name)
}

// JoinPrompt asks solvers to react with JoinEmoji.
const JoinPrompt = "**Please click the 🧩 reaction** on this message to indicate that you're working on this puzzle."

// JoinEmoji is the reaction that binds a puzzle to the reactor's table.
const JoinEmoji = "🧩"

// SolvedInChannel is posted in the workspace on solve.
func SolvedInChannel(answer string) string {
	return fmt.Sprintf("**Puzzle solved!** Answer: ||`%s`||\nChannel is now archived.", answer)
}

// SolvedBroadcast is posted in the status channel on solve.
func SolvedBroadcast(name, answer string) string {
	return fmt.Sprintf("**🎉 Puzzle _`%s`_ has been solved! 🥳**\n(Answer: ||`%s`||)\nWay to go team! 🎉", name, answer)
}

// NewRoundAnnouncement is posted in the status channel for a new round.
func NewRoundAnnouncement(round string) string {
	return fmt.Sprintf("🆕🔄 **New Round added! _`%s`_**", round)
}

// TableEmptiedNotice is posted in a workspace whose table emptied out.
func TableEmptiedNotice(location string) string {
	return fmt.Sprintf("Everyone left **%s**, so this puzzle is no longer considered in progress.\n"+
		"If you're working on this at a table, please run the `!joinus` command.\n\n"+
		"If you are in person, please stay connected to a voice chat so remote folks can contribute too.", location)
}
