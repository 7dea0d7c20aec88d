package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/ports/primary"
)

// Reply texts.
const (
	MarkUsage    = "Usage: `!mark [needs eyes|critical|under control|grind|waiting|wtf|unnecessary]`"
	PuzzleUsage  = "Sorry, I couldn't find a puzzle for that query. Please try again.\nUsage: `!puzzle [query]`"
	LeaveMissing = "Sorry, I couldn't find a puzzle for that query. Please try again."
	LeaveNudge   = "See you later! Please consider using the `!note [message]` command to help note how far your got in this puzzle for future solvers."
	RoundCreated = "Round created!"
	MetaSolved   = "You solved the meta!! 🎉 🥳"
)

// LongNoteNudge asks the author of an over-long note to shorten it.
func LongNoteNudge(userID string) string {
	return fmt.Sprintf("Hey <@%s>, I've set that as the puzzle note, but please consider re-adding it in a shorter (<200 char) form. "+
		"Notes of that length tend to be less helpful, and make things like `!hipri` and `!puzzle` much harder to read.\n"+
		"You should give all the context you want in the channel instead. Thanks!", userID)
}

// unknownCommand is the usage reply for a command the tree does not know.
func unknownCommand(prefix, name string, root *cobra.Command) string {
	var names []string
	for _, c := range root.Commands() {
		if c.Name() != "help" {
			names = append(names, "`"+prefix+c.Name()+"`")
		}
	}
	sort.Strings(names)
	return fmt.Sprintf("Sorry, I don't know `%s%s`. Commands: %s", prefix, name, strings.Join(names, ", "))
}

// splitTarget peels an optional leading target off args: a channel mention,
// or a bare word naming a puzzle or its workspace channel. A bare word only
// counts when at least minRest args follow it. Without a target the command
// applies to the channel it was sent from.
func (d *Dispatcher) splitTarget(ctx context.Context, req *request, args []string, minRest int) (primary.PuzzleRef, string) {
	if len(args) == 0 {
		return req.here(), ""
	}
	if id, ok := puzzle.ChannelMention(args[0]); ok {
		return primary.PuzzleRef{ChannelID: id}, strings.Join(args[1:], " ")
	}
	if len(args)-1 >= minRest {
		p, err := d.services.Reports.Find(ctx, primary.PuzzleRef{Query: args[0]})
		if err == nil && namesPuzzle(*p, args[0]) {
			return primary.PuzzleRef{ID: p.ID}, strings.Join(args[1:], " ")
		}
	}
	return req.here(), strings.Join(args, " ")
}

// namesPuzzle reports whether word is p's name or its channel name, ignoring
// case and the status glyph.
func namesPuzzle(p puzzle.Puzzle, word string) bool {
	return strings.EqualFold(p.Name, word) ||
		puzzle.SameChannelName(p.Name, word) ||
		puzzle.SameChannelName(puzzle.ChannelName(p.Name, p.Status), word)
}

// queryTarget treats args as a channel mention or a name query, defaulting
// to the current channel.
func queryTarget(req *request, args []string) primary.PuzzleRef {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return req.here()
	}
	return primary.PuzzleRef{Query: q}
}

func leaf(use string, aliases []string, run func(cmd *cobra.Command, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:                use,
		Aliases:            aliases,
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		RunE:               run,
	}
}

// commandTree builds the chat command tree for one message.
func (d *Dispatcher) commandTree(req *request) *cobra.Command {
	root := &cobra.Command{
		Use:           strings.TrimSpace(d.prefix),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(d.statusCommands(req)...)
	root.AddCommand(d.occupancyCommands(req)...)
	root.AddCommand(d.reportCommands(req)...)
	root.AddCommand(d.roundCommands(req)...)
	return root
}

func (d *Dispatcher) mark(req *request, ref primary.PuzzleRef, status puzzle.Status) func(*cobra.Command) error {
	return func(cmd *cobra.Command) error {
		resp, err := d.services.Status.Mark(cmd.Context(), primary.MarkRequest{Puzzle: ref, Status: status})
		if err != nil {
			return err
		}
		req.react("✍️", "👁️")
		if resp.RenameSkipped && resp.Message != "" {
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
		}
		return nil
	}
}

func (d *Dispatcher) statusCommands(req *request) []*cobra.Command {
	cmds := []*cobra.Command{
		leaf("mark [#channel] status", nil, func(cmd *cobra.Command, args []string) error {
			ref, text := req.here(), strings.Join(args, " ")
			status, ok := puzzle.ParseMarkAs(text)
			if !ok {
				ref, text = d.splitTarget(cmd.Context(), req, args, 1)
				status, ok = puzzle.ParseMarkAs(text)
			}
			if !ok {
				return apperr.New(apperr.KindInvalidInput, "mark", "%s", MarkUsage)
			}
			return d.mark(req, ref, status)(cmd)
		}),
		leaf("solved [#channel] ANSWER", []string{"solve", "submit"}, func(cmd *cobra.Command, args []string) error {
			ref, answer := d.splitTarget(cmd.Context(), req, args, 1)
			resp, err := d.services.Status.Solve(cmd.Context(), primary.SolveRequest{Puzzle: ref, Answer: answer})
			if err != nil {
				return err
			}
			if resp.Outcome == primary.OutcomeNoOp && resp.Message != "" {
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			}
			return nil
		}),
		leaf("unsolved [#channel]", []string{"unsolve"}, func(cmd *cobra.Command, args []string) error {
			ref, _ := d.splitTarget(cmd.Context(), req, args, 0)
			resp, err := d.services.Status.Unsolve(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			return nil
		}),
		leaf("note [#channel] [text]", []string{"comment", "notes"}, func(cmd *cobra.Command, args []string) error {
			ref, text := d.splitTarget(cmd.Context(), req, args, 1)
			resp, err := d.services.Status.SetNote(cmd.Context(), primary.NoteRequest{Puzzle: ref, Text: text})
			if err != nil {
				return err
			}
			switch {
			case !resp.Set:
				fmt.Fprintf(cmd.OutOrStdout(), "Current note: %s\n", resp.Note)
			case resp.TooLong:
				req.react("📕", "✍️")
				req.post(LongNoteNudge(req.ev.Author.ID))
			default:
				req.react("📃", "✍️")
			}
			return nil
		}),
		leaf("publish [#channel|query]", nil, func(cmd *cobra.Command, args []string) error {
			resp, err := d.services.Status.Publish(cmd.Context(), queryTarget(req, args))
			if err != nil {
				return err
			}
			if resp.Message != "" {
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
			}
			return nil
		}),
	}

	shortcuts := []struct {
		use     string
		aliases []string
		status  puzzle.Status
	}{
		{"eyes", []string{"needseyes"}, puzzle.StatusNeedsEyes},
		{"critical", nil, puzzle.StatusCritical},
		{"wtf", nil, puzzle.StatusWTF},
		{"unnecessary", nil, puzzle.StatusUnnecessary},
		{"undercontrol", []string{"control"}, puzzle.StatusUnderControl},
		{"grind", nil, puzzle.StatusGrind},
		{"waiting", nil, puzzle.StatusWaitingForHQ},
	}
	for _, s := range shortcuts {
		status := s.status
		cmds = append(cmds, leaf(s.use+" [#channel]", s.aliases, func(cmd *cobra.Command, args []string) error {
			ref, _ := d.splitTarget(cmd.Context(), req, args, 0)
			return d.mark(req, ref, status)(cmd)
		}))
	}
	return cmds
}

func (d *Dispatcher) occupancyCommands(req *request) []*cobra.Command {
	return []*cobra.Command{
		leaf("joinus", []string{"join", "joinme"}, func(cmd *cobra.Command, args []string) error {
			_, err := d.services.Occupancy.Join(cmd.Context(), primary.JoinRequest{Puzzle: req.here(), UserID: req.ev.Author.ID})
			if err != nil {
				return err
			}
			req.react(puzzle.JoinEmoji)
			return nil
		}),
		leaf("leaveus [#channel|query]", []string{"leave", "leavus"}, func(cmd *cobra.Command, args []string) error {
			ref := queryTarget(req, args)
			resp, err := d.services.Occupancy.SetLocation(cmd.Context(), primary.SetLocationRequest{Puzzle: ref})
			if apperr.KindOf(err) == apperr.KindNotFound && ref.Query != "" {
				return apperr.New(apperr.KindNotFound, "leave", "%s", LeaveMissing)
			}
			if err != nil {
				return err
			}
			req.react("👋", "🔚")
			if ref.Query == "" && !resp.Puzzle.IsSolved() {
				fmt.Fprintln(cmd.OutOrStdout(), LeaveNudge)
			}
			return nil
		}),
	}
}

func (d *Dispatcher) tables(cmd *cobra.Command) error {
	board, err := d.services.Reports.Tables(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), board)
	return nil
}

func (d *Dispatcher) reportCommands(req *request) []*cobra.Command {
	return []*cobra.Command{
		leaf("tables", []string{"table"}, func(cmd *cobra.Command, args []string) error {
			return d.tables(cmd)
		}),
		leaf("whereis [#channel|query|all]", []string{"where", "location"}, func(cmd *cobra.Command, args []string) error {
			ref := queryTarget(req, args)
			if q := strings.ToLower(ref.Query); q == "all" || q == "everything" {
				return d.tables(cmd)
			}
			line, err := d.services.Reports.WhereIs(cmd.Context(), ref)
			if apperr.KindOf(err) == apperr.KindNotFound {
				return d.tables(cmd)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		}),
		leaf("puzzle [#channel|query]", []string{"puz"}, func(cmd *cobra.Command, args []string) error {
			ref := queryTarget(req, args)
			p, err := d.services.Reports.Find(cmd.Context(), ref)
			if apperr.KindOf(err) == apperr.KindNotFound && ref.Query != "" {
				return apperr.New(apperr.KindNotFound, "puzzle", "%s", PuzzleUsage)
			}
			if err != nil {
				return err
			}
			req.embed = puzzle.BuildEmbed(*p)
			return nil
		}),
		leaf("hipri", nil, func(cmd *cobra.Command, args []string) error {
			text, err := d.services.Reports.Hipri(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		}),
	}
}

func (d *Dispatcher) roundCommands(req *request) []*cobra.Command {
	return []*cobra.Command{
		leaf("newround [round name]", nil, func(cmd *cobra.Command, args []string) error {
			if err := d.services.Rounds.CreateRound(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), RoundCreated)
			return nil
		}),
		leaf("solvedround [round name]", nil, func(cmd *cobra.Command, args []string) error {
			if err := d.services.Rounds.SolveRound(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), MetaSolved)
			return nil
		}),
		leaf("cleanup [no really]", nil, func(cmd *cobra.Command, args []string) error {
			report, err := d.services.Cleanup.Cleanup(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCleanup(report))
			return nil
		}),
	}
}

func renderCleanup(r *primary.CleanupReport) string {
	mentions := make([]string, len(r.Orphans))
	for i, id := range r.Orphans {
		mentions[i] = "<#" + id + ">"
	}
	if r.Deleted {
		return fmt.Sprintf("Deleted %d orphaned channels and %d empty categories.", len(r.Orphans), len(r.DeletedGroups))
	}
	if len(r.Orphans) == 0 {
		return "No orphaned puzzle channels found."
	}
	return fmt.Sprintf("Found %d channels with no puzzle: %s\nRun `!cleanup %s` to delete them.",
		len(r.Orphans), strings.Join(mentions, ", "), primary.CleanupConfirmation)
}
