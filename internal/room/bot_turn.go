package room

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// scheduleBotLocked hands the turn to the computer. With a think delay the
// move is played from a timer; a reset or reconfigure in the meantime bumps
// the generation and the timer's move is dropped.
func (r *Room) scheduleBotLocked(ctx context.Context) {
	r.thinking = true
	if r.opts.ThinkDelay <= 0 {
		r.playBotTurnLocked(ctx)
		return
	}

	gen := r.generation
	link := trace.LinkFromContext(ctx)
	time.AfterFunc(r.opts.ThinkDelay, func() {
		ctx, span := tracer.Start(context.Background(), "room.botTimer", trace.WithLinks(link), trace.WithAttributes(
			attribute.String("room.id", r.ID),
		))
		defer span.End()
		r.runBotTurn(ctx, gen)
	})
}

func (r *Room) runBotTurn(ctx context.Context, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || gen != r.generation || !r.thinking {
		slog.DebugContext(ctx, "dropping stale computer move", "room.id", r.ID)
		return
	}
	r.playBotTurnLocked(ctx)
	r.broadcastLocked(ctx)
}

func (r *Room) cancelBotLocked() {
	r.generation++
	r.thinking = false
}

// playBotTurnLocked asks the calculator for O's move and applies it. A failed
// save keeps the move in memory; the next successful save catches up.
func (r *Room) playBotTurnLocked(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "room.playBotTurn", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("bot.difficulty", string(r.difficulty)),
	))
	defer span.End()

	r.thinking = false
	difficultyAttr := metric.WithAttributes(attribute.String("difficulty", string(r.difficulty)))

	start := time.Now()
	cell := r.moveCalculator.CalculateNextMove(r.game.Board(), r.difficulty)
	getInstruments().selectDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, difficultyAttr)

	if cell == bot.NoMove {
		slog.ErrorContext(ctx, "computer found no move on an active board", "room.id", r.ID, "board", r.game.Board().String())
		span.RecordError(ErrNoBotMove)
		span.SetStatus(codes.Error, "Computer found no move")
		return
	}

	status, err := r.game.ApplyMove(cell, game.PlayerO)
	if err != nil {
		slog.ErrorContext(ctx, "computer move rejected", "room.id", r.ID, "cell", cell, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Computer move rejected")
		return
	}
	span.SetAttributes(attribute.Int("move.cell", cell))
	getInstruments().botMoves.Add(ctx, 1, difficultyAttr)
	slog.DebugContext(ctx, "computer moved", "room.id", r.ID, "cell", cell, "bot.difficulty", r.difficulty)

	if err := r.persistLocked(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to persist computer move")
		if errors.Is(err, repository.ErrConflict) {
			r.reloadLocked(ctx)
			return
		}
	} else {
		r.touchLocked()
	}
	r.recordOutcomeLocked(ctx, status)
}

// Resume plays the computer's turn when a restored single player game was
// saved between the human's move and the answer.
func (r *Room) Resume(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.game.Board()
	if r.closed || r.thinking || r.game.Mode() != game.ModeSingle || !r.game.Active() {
		return
	}
	if b.Count(game.PlayerX) <= b.Count(game.PlayerO) {
		return
	}
	slog.InfoContext(ctx, "resuming computer turn", "room.id", r.ID)
	r.scheduleBotLocked(ctx)
	r.broadcastLocked(ctx)
}
