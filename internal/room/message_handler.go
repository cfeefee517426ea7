package room

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"ctchen222/minimax-tic-tac-toe/internal/validator"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrBadMessage  = errors.New("malformed client message")
	ErrMissingCell = errors.New("move message carries no cell")
)

// HandleMessage decodes a raw client message and dispatches it. The error is
// meant for the sending client; the room state is unchanged when it is set.
func (r *Room) HandleMessage(ctx context.Context, rawMessage []byte) error {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from client", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	var err error
	switch message.Type {
	case proto.TypeMove:
		if message.Cell == nil {
			return ErrMissingCell
		}
		_, err = r.Move(ctx, *message.Cell)
	case proto.TypeReset:
		_, err = r.Reset(ctx)
	case proto.TypeConfigure:
		_, err = r.Configure(ctx, game.Mode(message.Mode), bot.Difficulty(message.Difficulty))
	}
	return err
}

// Move plays cell for the player whose turn it is. In single mode the human
// is X and an accepted move hands the turn to the computer.
func (r *Room) Move(ctx context.Context, cell int) (*proto.GameView, error) {
	ctx, span := tracer.Start(ctx, "room.Move", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.Int("move.cell", cell),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.thinking {
		span.SetStatus(codes.Error, "Move while computer is thinking")
		return nil, ErrBotThinking
	}

	prev := r.game.Snapshot()
	mark := r.game.CurrentPlayer()
	if r.game.Mode() == game.ModeSingle {
		mark = game.PlayerX
	}

	status, err := r.game.ApplyMove(cell, mark)
	if err != nil {
		slog.InfoContext(ctx, "rejected move", "room.id", r.ID, "cell", cell, "mark", mark, "error", err)
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid move")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("move.valid", true))

	if err := r.commitLocked(ctx, prev, r.difficulty); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist move")
		return nil, err
	}
	r.recordOutcomeLocked(ctx, status)

	if r.game.Mode() == game.ModeSingle && r.game.Active() {
		r.scheduleBotLocked(ctx)
	}
	r.broadcastLocked(ctx)
	return r.viewLocked(), nil
}

// Reset restarts the game in the current mode and cancels a pending computer move.
func (r *Room) Reset(ctx context.Context) (*proto.GameView, error) {
	ctx, span := tracer.Start(ctx, "room.Reset", trace.WithAttributes(
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.game.Snapshot()
	r.game.Reset()
	if err := r.commitLocked(ctx, prev, r.difficulty); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist reset")
		return nil, err
	}
	r.cancelBotLocked()

	slog.InfoContext(ctx, "game reset", "room.id", r.ID)
	r.broadcastLocked(ctx)
	return r.viewLocked(), nil
}

// Configure switches mode and difficulty and restarts the game. An empty
// difficulty keeps the current one.
func (r *Room) Configure(ctx context.Context, mode game.Mode, difficulty bot.Difficulty) (*proto.GameView, error) {
	ctx, span := tracer.Start(ctx, "room.Configure", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("game.mode", string(mode)),
		attribute.String("bot.difficulty", string(difficulty)),
	))
	defer span.End()

	if _, err := game.ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if difficulty != "" {
		if _, err := bot.ParseDifficulty(string(difficulty)); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, prevDifficulty := r.game.Snapshot(), r.difficulty
	r.game.SetMode(mode)
	if difficulty != "" {
		r.difficulty = difficulty
	}
	if err := r.commitLocked(ctx, prev, prevDifficulty); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist configuration")
		return nil, err
	}
	r.cancelBotLocked()

	slog.InfoContext(ctx, "game configured", "room.id", r.ID, "game.mode", mode, "bot.difficulty", r.difficulty)
	r.broadcastLocked(ctx)
	return r.viewLocked(), nil
}

// State returns the current view of the game.
func (r *Room) State() *proto.GameView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

// commitLocked persists the current state. On failure the game is put back
// to prev, or to the stored session when another writer got there first.
func (r *Room) commitLocked(ctx context.Context, prev game.Snapshot, prevDifficulty bot.Difficulty) error {
	err := r.persistLocked(ctx)
	if err == nil {
		r.touchLocked()
		return nil
	}

	if errors.Is(err, repository.ErrConflict) && r.reloadLocked(ctx) == nil {
		r.broadcastLocked(ctx)
		return err
	}
	if g, restoreErr := game.Restore(prev); restoreErr == nil {
		r.game = g
		r.difficulty = prevDifficulty
	}
	return err
}

func (r *Room) persistLocked(ctx context.Context) error {
	rec := r.recordLocked()
	if err := r.gameRepo.Save(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "failed to persist room", "room.id", r.ID, "version", r.version, "error", err)
		return fmt.Errorf("failed to persist room %s: %w", r.ID, err)
	}
	r.version = rec.Version
	return nil
}

// reloadLocked replaces the in-memory game with the stored session.
func (r *Room) reloadLocked(ctx context.Context) error {
	rec, err := r.gameRepo.FindByID(ctx, r.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to reload room", "room.id", r.ID, "error", err)
		return err
	}
	g, err := game.Restore(rec.Snapshot)
	if err != nil {
		slog.ErrorContext(ctx, "stored room is inconsistent", "room.id", r.ID, "error", err)
		return err
	}
	r.game = g
	r.difficulty = rec.Difficulty
	r.version = rec.Version
	r.cancelBotLocked()
	slog.WarnContext(ctx, "room reloaded after concurrent update", "room.id", r.ID, "version", r.version)
	return nil
}
