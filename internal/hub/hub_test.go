package hub

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/client"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"ctchen222/minimax-tic-tac-toe/internal/repository/mocks"
	"ctchen222/minimax-tic-tac-toe/internal/room"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeConn struct {
	mu       sync.Mutex
	writes   []proto.ServerToClientMessage
	closed   bool
	incoming chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{incoming: make(chan []byte, 4)}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	var m proto.ServerToClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, m)
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	msg, ok := <-c.incoming
	if !ok {
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
	return websocket.TextMessage, msg, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) snapshot() ([]proto.ServerToClientMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]proto.ServerToClientMessage(nil), c.writes...), c.closed
}

func newTestHub(repo repository.GameRepository) *Hub {
	return NewHub(repo, nil, Options{IdleTimeout: time.Minute})
}

func TestCreateRoomAndLookup(t *testing.T) {
	ctx := context.Background()
	h := newTestHub(repository.NewMemoryGameRepository(time.Hour))

	r, err := h.CreateRoom(ctx, game.ModeSingle, bot.Medium)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)

	got, err := h.Room(ctx, r.ID)
	require.NoError(t, err)
	assert.Same(t, r, got)
	assert.Equal(t, 1, h.RoomCount())

	_, err = h.Room(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRestoresFromRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryGameRepository(time.Hour)

	// A previous process created and played the session.
	before := newTestHub(repo)
	r, err := before.CreateRoom(ctx, game.ModeMulti, bot.Easy)
	require.NoError(t, err)
	_, err = r.Move(ctx, 4)
	require.NoError(t, err)

	after := newTestHub(repo)
	restored, err := after.Room(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.State(), restored.State())
	assert.Equal(t, bot.Easy, restored.Difficulty())

	_, err = restored.Move(ctx, 0)
	assert.NoError(t, err)
}

func TestRoomPropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGameRepository(ctrl)

	boom := errors.New("connection refused")
	repo.EXPECT().FindByID(gomock.Any(), "g1").Return(nil, boom)

	_, err := newTestHub(repo).Room(ctx, "g1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomRejectsCorruptSession(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGameRepository(ctrl)

	repo.EXPECT().FindByID(gomock.Any(), "g1").Return(&repository.GameRecord{
		ID: "g1",
		Snapshot: game.Snapshot{
			Board:       game.Board{game.PlayerO, game.PlayerO},
			CurrentTurn: game.PlayerX,
			Active:      true,
			Status:      game.StatusInProgress,
			Mode:        game.ModeMulti,
		},
		Version: 3,
	}, nil)

	h := newTestHub(repo)
	_, err := h.Room(ctx, "g1")
	assert.ErrorIs(t, err, game.ErrBadSnapshot)
	assert.Zero(t, h.RoomCount())
}

func TestCreateRoomStoreFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGameRepository(ctrl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	h := newTestHub(repo)
	_, err := h.CreateRoom(ctx, game.ModeSingle, bot.Hard)
	assert.Error(t, err)
	assert.Zero(t, h.RoomCount())
}

func TestCloseIdle(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryGameRepository(time.Hour)
	h := newTestHub(repo)

	idle, err := h.CreateRoom(ctx, game.ModeSingle, bot.Hard)
	require.NoError(t, err)
	busy, err := h.CreateRoom(ctx, game.ModeSingle, bot.Hard)
	require.NoError(t, err)
	busy.Attach(ctx, client.New("c1", newFakeConn()))

	assert.Zero(t, h.CloseIdle(ctx, time.Now()))
	assert.Equal(t, 1, h.CloseIdle(ctx, time.Now().Add(2*time.Minute)))
	assert.Equal(t, 1, h.RoomCount())

	// The evicted session is still stored and comes back on demand.
	back, err := h.Room(ctx, idle.ID)
	require.NoError(t, err)
	assert.NotSame(t, idle, back)
	assert.Equal(t, idle.State(), back.State())
}

func TestRunAttachesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(repository.NewMemoryGameRepository(time.Hour), func() room.MoveCalculator {
		return bot.NewBotMoveCalculator(nil)
	}, Options{IdleTimeout: time.Minute})
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	r, err := h.CreateRoom(ctx, game.ModeSingle, bot.Hard)
	require.NoError(t, err)

	conn := newFakeConn()
	h.RegisterClient(ctx, r.ID, client.New("c1", conn))
	require.Eventually(t, func() bool {
		msgs, _ := conn.snapshot()
		return len(msgs) == 1
	}, time.Second, 5*time.Millisecond)

	conn.incoming <- []byte(`{"type":"move","cell":0}`)
	require.Eventually(t, func() bool {
		msgs, _ := conn.snapshot()
		return len(msgs) == 2
	}, time.Second, 5*time.Millisecond)
	msgs, _ := conn.snapshot()
	assert.Equal(t, game.PlayerX, msgs[1].Game.Board[0][0])
	assert.Equal(t, game.PlayerO, msgs[1].Game.Board[1][1])

	close(conn.incoming)
	require.Eventually(t, func() bool {
		_, closed := conn.snapshot()
		return closed && r.ClientCount() == 0
	}, time.Second, 5*time.Millisecond)

	stranger := newFakeConn()
	h.RegisterClient(ctx, "missing", client.New("c2", stranger))
	require.Eventually(t, func() bool {
		_, closed := stranger.snapshot()
		return closed
	}, time.Second, 5*time.Millisecond)
	msgs, _ = stranger.snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, proto.TypeError, msgs[0].Type)

	cancel()
	<-done
	assert.Zero(t, h.RoomCount())
}

// gatedRepository holds every FindByID until release is closed.
type gatedRepository struct {
	repository.GameRepository
	entered chan string
	release chan struct{}
}

func (r *gatedRepository) FindByID(ctx context.Context, id string) (*repository.GameRecord, error) {
	r.entered <- id
	<-r.release
	return r.GameRepository.FindByID(ctx, id)
}

func TestRoomLoadsWithoutBlockingHub(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryGameRepository(time.Hour)

	stored, err := newTestHub(store).CreateRoom(ctx, game.ModeMulti, bot.Easy)
	require.NoError(t, err)

	repo := &gatedRepository{GameRepository: store, entered: make(chan string, 2), release: make(chan struct{})}
	h := newTestHub(repo)
	live, err := h.CreateRoom(ctx, game.ModeSingle, bot.Hard)
	require.NoError(t, err)

	results := make(chan *room.Room, 2)
	for range 2 {
		go func() {
			r, err := h.Room(ctx, stored.ID)
			assert.NoError(t, err)
			results <- r
		}()
	}

	// Both loads reach the store at once and the hub keeps serving.
	for range 2 {
		select {
		case id := <-repo.entered:
			assert.Equal(t, stored.ID, id)
		case <-time.After(time.Second):
			t.Fatal("concurrent load did not reach the store")
		}
	}
	got, err := h.Room(ctx, live.ID)
	require.NoError(t, err)
	assert.Same(t, live, got)
	assert.Equal(t, 1, h.RoomCount())

	close(repo.release)
	first, second := <-results, <-results
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 2, h.RoomCount())
}
