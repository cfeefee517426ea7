package room

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/client"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("room")

var (
	ErrBotThinking = errors.New("computer is still thinking")
	ErrNoBotMove   = errors.New("computer found no move")
)

// MoveCalculator defines an interface for an agent that can calculate a game move.
type MoveCalculator interface {
	CalculateNextMove(board game.Board, difficulty bot.Difficulty) int
}

// Options tune a room's computer opponent.
type Options struct {
	// ThinkDelay is how long the computer waits before answering a move.
	// Zero answers synchronously.
	ThinkDelay time.Duration
}

// Room represents one game session. All state is guarded by mu; every
// accepted change is persisted and then broadcast to attached clients.
type Room struct {
	ID string

	mu         sync.Mutex
	game       *game.Game
	difficulty bot.Difficulty
	version    int64
	thinking   bool
	generation uint64
	clients    map[string]*client.Client
	lastActive time.Time
	closed     bool

	gameRepo       repository.GameRepository
	moveCalculator MoveCalculator
	opts           Options
}

// NewRoom creates a room holding a fresh game and stores it.
func NewRoom(ctx context.Context, id string, mode game.Mode, difficulty bot.Difficulty, gameRepo repository.GameRepository, calculator MoveCalculator, opts Options) (*Room, error) {
	r := newRoom(id, game.NewGame(mode), difficulty, gameRepo, calculator, opts)

	rec := r.recordLocked()
	if err := gameRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store new room %s: %w", id, err)
	}
	r.version = rec.Version
	return r, nil
}

// RestoreRoom rebuilds a room from a stored session.
func RestoreRoom(rec *repository.GameRecord, gameRepo repository.GameRepository, calculator MoveCalculator, opts Options) (*Room, error) {
	g, err := game.Restore(rec.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to restore room %s: %w", rec.ID, err)
	}
	r := newRoom(rec.ID, g, rec.Difficulty, gameRepo, calculator, opts)
	r.version = rec.Version
	return r, nil
}

func newRoom(id string, g *game.Game, difficulty bot.Difficulty, gameRepo repository.GameRepository, calculator MoveCalculator, opts Options) *Room {
	if difficulty == "" {
		difficulty = bot.Easy
	}
	return &Room{
		ID:             id,
		game:           g,
		difficulty:     difficulty,
		clients:        make(map[string]*client.Client),
		lastActive:     time.Now(),
		gameRepo:       gameRepo,
		moveCalculator: calculator,
		opts:           opts,
	}
}

// Difficulty returns the computer's current difficulty.
func (r *Room) Difficulty() bot.Difficulty {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.difficulty
}

// ClientCount returns how many clients are attached.
func (r *Room) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// IdleSince reports when the room last saw a client or a change. It returns
// the zero time while clients are attached.
func (r *Room) IdleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.clients) > 0 {
		return time.Time{}
	}
	return r.lastActive
}

// Close cancels any pending computer move and disconnects every client.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.cancelBotLocked()
	for id, c := range r.clients {
		c.Conn.Close()
		delete(r.clients, id)
	}
}

func (r *Room) recordLocked() *repository.GameRecord {
	return &repository.GameRecord{
		ID:         r.ID,
		Snapshot:   r.game.Snapshot(),
		Difficulty: r.difficulty,
		Version:    r.version,
	}
}

func (r *Room) touchLocked() {
	r.lastActive = time.Now()
}
