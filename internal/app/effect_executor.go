package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/puzzbot/internal/core/effects"
	"github.com/example/puzzbot/internal/ports/primary"
	"github.com/example/puzzbot/internal/ports/secondary"
)

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place I/O happens.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) error
}

// PartialError reports an effect list that stopped part way. Effects before
// Failed were applied and are not rolled back.
type PartialError struct {
	Applied []string
	Failed  string
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("failed to execute %s effect after %d applied: %v", e.Failed, len(e.Applied), e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// DefaultEffectExecutor implements EffectExecutor against the record store
// and the chat platform.
type DefaultEffectExecutor struct {
	puzzles    secondary.PuzzleRepository
	rounds     secondary.RoundRepository
	channels   secondary.ChannelGateway
	messages   secondary.MessageGateway
	categories primary.CategoryService
	logger     *slog.Logger
}

// NewEffectExecutor creates a new DefaultEffectExecutor.
func NewEffectExecutor(
	puzzles secondary.PuzzleRepository,
	rounds secondary.RoundRepository,
	channels secondary.ChannelGateway,
	messages secondary.MessageGateway,
	categories primary.CategoryService,
	logger *slog.Logger,
) *DefaultEffectExecutor {
	return &DefaultEffectExecutor{
		puzzles:    puzzles,
		rounds:     rounds,
		channels:   channels,
		messages:   messages,
		categories: categories,
		logger:     logger,
	}
}

// Execute processes effects in order and stops at the first failure. Nothing
// is retried.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) error {
	var applied []string
	for _, eff := range effs {
		if err := e.executeOne(ctx, eff); err != nil {
			return &PartialError{Applied: applied, Failed: eff.EffectType(), Err: err}
		}
		applied = append(applied, eff.EffectType())
	}
	return nil
}

func (e *DefaultEffectExecutor) executeOne(ctx context.Context, eff effects.Effect) error {
	switch typed := eff.(type) {
	case effects.RecordEffect:
		return e.executeRecord(ctx, typed)
	case effects.ChannelEffect:
		return e.executeChannel(ctx, typed)
	case effects.PlaceEffect:
		_, err := e.categories.Place(ctx, typed.ChannelID, typed.Round, typed.Archive, typed.Position)
		return err
	case effects.PruneGroupEffect:
		_, err := e.categories.PruneIfEmpty(ctx, typed.GroupID, typed.Round, typed.Archive)
		return err
	case effects.MessageEffect:
		return e.executeMessage(ctx, typed)
	case effects.CompositeEffect:
		return e.Execute(ctx, typed.Effects)
	case effects.NoEffect:
		return nil
	case effects.LogEffect:
		e.executeLog(ctx, typed)
		return nil
	default:
		return fmt.Errorf("unknown effect type: %T", eff)
	}
}

func (e *DefaultEffectExecutor) executeRecord(ctx context.Context, eff effects.RecordEffect) error {
	switch eff.Entity {
	case "puzzle":
		return e.puzzles.UpdateField(ctx, eff.ID, eff.Field, eff.Value)
	case "round":
		return e.rounds.UpdateField(ctx, eff.ID, eff.Field, eff.Value)
	default:
		return fmt.Errorf("unknown record entity: %s", eff.Entity)
	}
}

func (e *DefaultEffectExecutor) executeChannel(ctx context.Context, eff effects.ChannelEffect) error {
	switch eff.Operation {
	case effects.ChannelRename:
		return e.channels.RenameChannel(ctx, eff.ChannelID, eff.Name)
	case effects.ChannelDelete:
		return e.channels.DeleteChannel(ctx, eff.ChannelID)
	default:
		return fmt.Errorf("unknown channel operation: %s", eff.Operation)
	}
}

// executeMessage posts the message, then pins and reacts to it. Pin and
// react failures are logged; the message itself was delivered.
func (e *DefaultEffectExecutor) executeMessage(ctx context.Context, eff effects.MessageEffect) error {
	msg, err := e.messages.Send(ctx, secondary.OutboundMessage{
		ChannelID: eff.ChannelID,
		Content:   eff.Content,
		Embed:     eff.Embed,
	})
	if err != nil {
		return err
	}
	if eff.Pin {
		if err := e.messages.Pin(ctx, eff.ChannelID, msg.ID); err != nil {
			e.logger.WarnContext(ctx, "failed to pin message", "channel_id", eff.ChannelID, "message_id", msg.ID, "error", err)
		}
	}
	if eff.React != "" {
		if err := e.messages.React(ctx, eff.ChannelID, msg.ID, eff.React); err != nil {
			e.logger.WarnContext(ctx, "failed to react to message", "channel_id", eff.ChannelID, "message_id", msg.ID, "error", err)
		}
	}
	return nil
}

func (e *DefaultEffectExecutor) executeLog(ctx context.Context, eff effects.LogEffect) {
	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(eff.Level))
	args := make([]any, 0, 2*len(eff.Fields))
	for k, v := range eff.Fields {
		args = append(args, k, v)
	}
	e.logger.Log(ctx, level, eff.Message, args...)
}
