package room

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type instruments struct {
	gamesFinished  metric.Int64Counter
	botMoves       metric.Int64Counter
	selectDuration metric.Float64Histogram
}

var (
	instrumentsOnce sync.Once
	roomInstruments instruments
)

func getInstruments() *instruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter("room")
		var err error
		if roomInstruments.gamesFinished, err = meter.Int64Counter("ttt.games.finished",
			metric.WithDescription("Games that ended in a win or a draw")); err != nil {
			slog.Error("failed to create games counter", "error", err)
		}
		if roomInstruments.botMoves, err = meter.Int64Counter("ttt.bot.moves",
			metric.WithDescription("Moves played by the computer")); err != nil {
			slog.Error("failed to create bot move counter", "error", err)
		}
		if roomInstruments.selectDuration, err = meter.Float64Histogram("ttt.bot.select.duration",
			metric.WithDescription("Time the computer spent choosing a move"),
			metric.WithUnit("ms")); err != nil {
			slog.Error("failed to create selection histogram", "error", err)
		}
	})
	return &roomInstruments
}

func (r *Room) recordOutcomeLocked(ctx context.Context, status game.Status) {
	var outcome string
	switch {
	case status == game.StatusDraw:
		outcome = "draw"
	case status == game.StatusWon && r.game.Winner() == game.PlayerX:
		outcome = "x_wins"
	case status == game.StatusWon:
		outcome = "o_wins"
	default:
		return
	}
	getInstruments().gamesFinished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("game.mode", string(r.game.Mode())),
	))
	slog.InfoContext(ctx, "game finished", "room.id", r.ID, "outcome", outcome)
}
