package arena

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	outcomes map[Outcome]int
	games    map[int]bool
}

func (r *recorder) OnGameFinished(_, gameIndex int, outcome Outcome, board game.Board) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
	r.games[gameIndex] = true
}

func newRecorder() *recorder {
	return &recorder{outcomes: make(map[Outcome]int), games: make(map[int]bool)}
}

func TestSwap(t *testing.T) {
	b := game.Board{game.PlayerX, game.PlayerO, game.None}
	got := Swap(b)
	assert.Equal(t, game.Board{game.PlayerO, game.PlayerX, game.None}, got)
	assert.Equal(t, game.PlayerX, b[0], "Swap must not modify its argument")
}

func TestHardAgainstHardAlwaysDraws(t *testing.T) {
	rec := newRecorder()
	summary, err := Run(context.Background(), Config{Games: 20, Workers: 4, X: bot.Hard, O: bot.Hard, Seed: 1}, rec)
	require.NoError(t, err)

	assert.Equal(t, 20, summary.Games)
	assert.Equal(t, 20, summary.Draws)
	assert.Equal(t, 4, summary.Workers)
	assert.Len(t, rec.games, 20)
	assert.Equal(t, 20, rec.outcomes[Draw])
}

func TestHardNeverLosesToEasy(t *testing.T) {
	tests := []struct {
		name  string
		x, o  bot.Difficulty
		loser func(Summary) int
	}{
		{"hard plays O", bot.Easy, bot.Hard, func(s Summary) int { return s.XWins }},
		{"hard plays X", bot.Hard, bot.Easy, func(s Summary) int { return s.OWins }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, err := Run(context.Background(), Config{Games: 100, Workers: 4, X: tt.x, O: tt.o, Seed: 7}, nil)
			require.NoError(t, err)
			assert.Equal(t, 100, summary.Games)
			assert.Zero(t, tt.loser(summary))
		})
	}
}

func TestEasyAgainstEasyProducesEveryOutcome(t *testing.T) {
	summary, err := Run(context.Background(), Config{Games: 500, Workers: 2, X: bot.Easy, O: bot.Easy, Seed: 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, 500, summary.XWins+summary.OWins+summary.Draws)
	assert.Positive(t, summary.XWins)
	assert.Positive(t, summary.OWins)
	assert.Positive(t, summary.Draws)
	// Random play favours the first mover.
	assert.Greater(t, summary.XWins, summary.OWins)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := Run(ctx, Config{Games: 1000, Workers: 2, X: bot.Hard, O: bot.Hard}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, summary.Games, 1000)
}

func TestRunRejectsBadConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{Games: 0, X: bot.Hard, O: bot.Hard}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Run(context.Background(), Config{Games: 1, X: "brutal", O: bot.Hard}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

type fixedPlayer int

func (p fixedPlayer) Move(game.Board, game.PlayerMark) int { return int(p) }

func TestPlayGameReportsIllegalMoves(t *testing.T) {
	_, _, err := PlayGame(fixedPlayer(4), fixedPlayer(4))
	assert.ErrorIs(t, err, game.ErrOccupied)
}
