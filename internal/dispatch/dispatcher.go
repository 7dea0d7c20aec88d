// Package dispatch turns chat events into service calls. Commands are parsed
// with a cobra tree built per message; everything else is a thin mapping
// onto the primary ports.
package dispatch

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/example/puzzbot/internal/apperr"
	"github.com/example/puzzbot/internal/core/effects"
	"github.com/example/puzzbot/internal/core/puzzle"
	"github.com/example/puzzbot/internal/ctxutil"
	"github.com/example/puzzbot/internal/ports/primary"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// GenericFailure is the reply to errors users cannot act on.
const GenericFailure = "Something went wrong, retry or use the Puzzleboss UI directly."

// Reactions with special meaning.
const (
	PinEmoji   = "📌"
	UnpinEmoji = "🧹"
)

// Services are the primary ports commands drive.
type Services struct {
	Status    primary.StatusService
	Rounds    primary.RoundService
	Occupancy primary.OccupancyService
	Reports   primary.ReportService
	Cleanup   primary.CleanupService
}

// Dispatcher implements primary.EventHandler.
type Dispatcher struct {
	services Services
	messages secondary.MessageGateway
	prefix   string
	logger   *slog.Logger
}

var _ primary.EventHandler = (*Dispatcher)(nil)

// New creates a Dispatcher. Messages starting with prefix are commands.
func New(services Services, messages secondary.MessageGateway, prefix string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{services: services, messages: messages, prefix: prefix, logger: logger}
}

// request is the state of one command invocation: who sent it, where, and
// what to answer.
type request struct {
	ev     primary.MessageEvent
	out    bytes.Buffer
	embed  *effects.Embed
	reacts []string
	posts  []string // plain channel messages, not replies
}

func (r *request) react(emoji ...string) { r.reacts = append(r.reacts, emoji...) }

func (r *request) post(text string) { r.posts = append(r.posts, text) }

// here is the workspace the command was sent from.
func (r *request) here() primary.PuzzleRef { return primary.PuzzleRef{ChannelID: r.ev.ChannelID} }

func actorContext(ctx context.Context, m primary.Member) context.Context {
	return ctxutil.WithActor(ctx, ctxutil.Actor{ID: m.ID, Name: m.Name, Roles: m.Roles})
}

// HandleMessage runs a chat command and sends its reply.
func (d *Dispatcher) HandleMessage(ctx context.Context, ev primary.MessageEvent) {
	if ev.Author.Bot || !strings.HasPrefix(ev.Content, d.prefix) {
		return
	}
	args := strings.Fields(strings.TrimPrefix(ev.Content, d.prefix))
	if len(args) == 0 {
		return
	}
	args[0] = strings.ToLower(args[0])

	reqID := uuid.NewString()
	ctx = ctxutil.WithRequestID(actorContext(ctx, ev.Author), reqID)
	logger := d.logger.With("request_id", reqID, "command", args[0], "channel_id", ev.ChannelID, "user_id", ev.Author.ID)

	req := &request{ev: ev}
	root := d.commandTree(req)
	if _, _, err := root.Find(args); err != nil {
		logger.InfoContext(ctx, "unknown command")
		req.out.WriteString(unknownCommand(d.prefix, args[0], root))
		d.flush(ctx, logger, req)
		return
	}
	root.SetArgs(args)
	root.SetOut(&req.out)
	root.SetErr(&req.out)

	if err := root.ExecuteContext(ctx); err != nil {
		req.out.Reset()
		req.out.WriteString(d.render(ctx, logger, err))
	}
	d.flush(ctx, logger, req)
}

// render turns an error into reply text.
func (d *Dispatcher) render(ctx context.Context, logger *slog.Logger, err error) string {
	if msg, ok := apperr.UserMessage(err); ok {
		logger.InfoContext(ctx, "command rejected", "kind", apperr.KindOf(err), "reason", msg)
		return msg
	}
	logger.ErrorContext(ctx, "command failed", "kind", apperr.KindOf(err), "error", err)
	return GenericFailure
}

func (d *Dispatcher) flush(ctx context.Context, logger *slog.Logger, req *request) {
	text := strings.TrimRight(req.out.String(), "\n")
	if text != "" || req.embed != nil {
		_, err := d.messages.Send(ctx, secondary.OutboundMessage{
			ChannelID: req.ev.ChannelID,
			Content:   text,
			Embed:     req.embed,
			ReplyTo:   req.ev.ID,
		})
		if err != nil {
			logger.WarnContext(ctx, "failed to send reply", "error", err)
		}
	}
	for _, text := range req.posts {
		if _, err := d.messages.Send(ctx, secondary.OutboundMessage{ChannelID: req.ev.ChannelID, Content: text}); err != nil {
			logger.WarnContext(ctx, "failed to post message", "error", err)
		}
	}
	for _, emoji := range req.reacts {
		if err := d.messages.React(ctx, req.ev.ChannelID, req.ev.ID, emoji); err != nil {
			logger.WarnContext(ctx, "failed to react", "emoji", emoji, "error", err)
		}
	}
}

// HandleReaction pins, unpins, or binds the reactor's table.
func (d *Dispatcher) HandleReaction(ctx context.Context, ev primary.ReactionEvent) {
	if ev.Member.Bot || ev.Member.ID == ev.SelfID {
		return
	}
	logger := d.logger.With("channel_id", ev.ChannelID, "message_id", ev.MessageID, "emoji", ev.Emoji)

	var err error
	switch ev.Emoji {
	case PinEmoji:
		err = d.messages.Pin(ctx, ev.ChannelID, ev.MessageID)
	case UnpinEmoji:
		err = d.messages.Unpin(ctx, ev.ChannelID, ev.MessageID)
	case puzzle.JoinEmoji:
		err = d.joinFromPrompt(actorContext(ctx, ev.Member), ev)
	default:
		return
	}
	if err != nil {
		logger.WarnContext(ctx, "reaction not applied", "error", err)
	}
}

func (d *Dispatcher) joinFromPrompt(ctx context.Context, ev primary.ReactionEvent) error {
	msg, err := d.messages.GetMessage(ctx, ev.ChannelID, ev.MessageID)
	if err != nil {
		return err
	}
	if msg.AuthorID != ev.SelfID || !strings.Contains(strings.ToLower(msg.Content), strings.ToLower(puzzle.JoinPrompt)) {
		return nil
	}
	_, err = d.services.Occupancy.Join(ctx, primary.JoinRequest{
		Puzzle: primary.PuzzleRef{ChannelID: ev.ChannelID},
		UserID: ev.Member.ID,
	})
	if apperr.KindOf(err) == apperr.KindInvalidInput {
		return nil // not at a table
	}
	return err
}

// HandleVoiceState reports both ends of a move to the occupancy tracker.
func (d *Dispatcher) HandleVoiceState(ctx context.Context, ev primary.VoiceStateEvent) {
	for _, change := range []*primary.MembershipChange{ev.Before, ev.After} {
		if change != nil {
			d.services.Occupancy.OnMembershipChanged(ctx, *change)
		}
	}
}
