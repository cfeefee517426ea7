package hub

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/client"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"ctchen222/minimax-tic-tac-toe/internal/room"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	heartbeatInterval = 10 * time.Second
	sweepInterval     = time.Minute
)

var tracer = otel.Tracer("hub")

var ErrRoomNotFound = errors.New("room not found")

// CalculatorFactory builds the move calculator of one room. Each room gets
// its own because a bot.Selector is not safe for concurrent use.
type CalculatorFactory func() room.MoveCalculator

// Options configure every room the hub creates.
type Options struct {
	ThinkDelay time.Duration
	// IdleTimeout is how long a room without clients stays in memory.
	IdleTimeout time.Duration
}

// Hub manages the live rooms of this process. Rooms not in memory are
// restored from the repository on demand.
type Hub struct {
	mu            sync.Mutex
	rooms         map[string]*room.Room
	register      chan *RegistrationRequest
	unregister    chan departure
	gameRepo      repository.GameRepository
	newCalculator CalculatorFactory
	opts          Options
}

// NewHub creates a new hub.
func NewHub(gameRepo repository.GameRepository, newCalculator CalculatorFactory, opts Options) *Hub {
	if newCalculator == nil {
		newCalculator = func() room.MoveCalculator { return bot.NewBotMoveCalculator(nil) }
	}
	return &Hub{
		rooms:         make(map[string]*room.Room),
		register:      make(chan *RegistrationRequest),
		unregister:    make(chan departure),
		gameRepo:      gameRepo,
		newCalculator: newCalculator,
		opts:          opts,
	}
}

// CreateRoom starts a new game session under a fresh id.
func (h *Hub) CreateRoom(ctx context.Context, mode game.Mode, difficulty bot.Difficulty) (*room.Room, error) {
	id := uuid.NewString()
	ctx, span := tracer.Start(ctx, "hub.CreateRoom", trace.WithAttributes(
		attribute.String("room.id", id),
		attribute.String("game.mode", string(mode)),
		attribute.String("bot.difficulty", string(difficulty)),
	))
	defer span.End()

	r, err := room.NewRoom(ctx, id, mode, difficulty, h.gameRepo, h.newCalculator(), h.roomOptions())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create room")
		return nil, err
	}

	h.mu.Lock()
	h.rooms[id] = r
	h.mu.Unlock()

	slog.InfoContext(ctx, "Room created", "room.id", id, "game.mode", mode, "bot.difficulty", difficulty)
	return r, nil
}

// Room returns the live room for id, restoring it from the repository when
// this process does not hold it. The store is read without holding the hub
// lock; when two callers restore the same room the first one inserted wins.
func (h *Hub) Room(ctx context.Context, id string) (*room.Room, error) {
	if r, ok := h.liveRoom(id); ok {
		return r, nil
	}

	ctx, span := tracer.Start(ctx, "hub.restoreRoom", trace.WithAttributes(
		attribute.String("room.id", id),
	))
	defer span.End()

	rec, err := h.gameRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, id)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load room")
		return nil, err
	}
	r, err := room.RestoreRoom(rec, h.gameRepo, h.newCalculator(), h.roomOptions())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to restore room")
		return nil, err
	}

	h.mu.Lock()
	if existing, ok := h.rooms[id]; ok {
		h.mu.Unlock()
		return existing, nil
	}
	h.rooms[id] = r
	h.mu.Unlock()
	slog.InfoContext(ctx, "Room restored from store", "room.id", id, "version", rec.Version)

	r.Resume(ctx)
	return r, nil
}

func (h *Hub) liveRoom(id string) (*room.Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	return r, ok
}

// RoomCount returns how many rooms are held in memory.
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// CloseIdle evicts rooms that have had no client and no change for longer
// than the idle timeout. Evicted sessions stay in the repository.
func (h *Hub) CloseIdle(ctx context.Context, now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	closed := 0
	for id, r := range h.rooms {
		since := r.IdleSince()
		if since.IsZero() || now.Sub(since) <= h.opts.IdleTimeout {
			continue
		}
		r.Close()
		delete(h.rooms, id)
		closed++
		slog.InfoContext(ctx, "Room closed after idling", "room.id", id, "idle", now.Sub(since))
	}
	return closed
}

func (h *Hub) roomOptions() room.Options {
	return room.Options{ThinkDelay: h.opts.ThinkDelay}
}

// Run serves client registrations and departures, pings clients and sweeps
// idle rooms until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	pingTicker := time.NewTicker(heartbeatInterval)
	sweepTicker := time.NewTicker(sweepInterval)
	defer func() {
		pingTicker.Stop()
		sweepTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			slog.Info("Hub stopped")
			return

		case req := <-h.register:
			h.handleRegistration(ctx, req)

		case d := <-h.unregister:
			d.room.Detach(ctx, d.client)

		case <-pingTicker.C:
			for _, r := range h.liveRooms() {
				r.Ping(ctx)
			}

		case now := <-sweepTicker.C:
			h.CloseIdle(ctx, now)
			if n, err := h.gameRepo.Purge(ctx); err != nil {
				slog.ErrorContext(ctx, "Failed to purge expired sessions", "error", err)
			} else if n > 0 {
				slog.InfoContext(ctx, "Purged expired sessions", "count", n)
			}
		}
	}
}

func (h *Hub) liveRooms() []*room.Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms := make([]*room.Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, r := range h.rooms {
		r.Close()
		delete(h.rooms, id)
	}
}

// RegisterClient hands a connected client to the Run loop.
func (h *Hub) RegisterClient(ctx context.Context, gameID string, c *client.Client) {
	select {
	case h.register <- &RegistrationRequest{Client: c, GameID: gameID, Ctx: ctx}:
	case <-ctx.Done():
		c.Conn.Close()
	}
}
