package repository

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(t *testing.T) *GameRecord {
	t.Helper()
	g := game.NewGame(game.ModeSingle)
	_, err := g.ApplyMove(4, game.PlayerX)
	require.NoError(t, err)
	return &GameRecord{
		ID:         uuid.NewString(),
		Snapshot:   g.Snapshot(),
		Difficulty: bot.Hard,
	}
}

// testGameRepository runs the behaviour every backend shares.
func testGameRepository(t *testing.T, repo GameRepository) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		rec := newRecord(t)
		require.NoError(t, repo.Create(ctx, rec))
		assert.Equal(t, int64(1), rec.Version)

		got, err := repo.FindByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Snapshot, got.Snapshot)
		assert.Equal(t, bot.Hard, got.Difficulty)
		assert.Equal(t, int64(1), got.Version)

		_, err = game.Restore(got.Snapshot)
		assert.NoError(t, err)
	})

	t.Run("create duplicate", func(t *testing.T) {
		rec := newRecord(t)
		require.NoError(t, repo.Create(ctx, rec))
		dup := *rec
		assert.ErrorIs(t, repo.Create(ctx, &dup), ErrExists)
	})

	t.Run("find missing", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save advances version", func(t *testing.T) {
		rec := newRecord(t)
		require.NoError(t, repo.Create(ctx, rec))

		g, err := game.Restore(rec.Snapshot)
		require.NoError(t, err)
		_, err = g.ApplyMove(0, game.PlayerO)
		require.NoError(t, err)
		rec.Snapshot = g.Snapshot()
		rec.Difficulty = bot.Easy

		require.NoError(t, repo.Save(ctx, rec))
		assert.Equal(t, int64(2), rec.Version)

		got, err := repo.FindByID(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, game.PlayerO, got.Snapshot.Board[0])
		assert.Equal(t, bot.Easy, got.Difficulty)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("save stale version", func(t *testing.T) {
		rec := newRecord(t)
		require.NoError(t, repo.Create(ctx, rec))

		first, err := repo.FindByID(ctx, rec.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, rec.ID)
		require.NoError(t, err)

		require.NoError(t, repo.Save(ctx, first))
		assert.ErrorIs(t, repo.Save(ctx, second), ErrConflict)
		assert.Equal(t, int64(1), second.Version)
	})

	t.Run("save missing", func(t *testing.T) {
		rec := newRecord(t)
		rec.Version = 1
		assert.ErrorIs(t, repo.Save(ctx, rec), ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		rec := newRecord(t)
		require.NoError(t, repo.Create(ctx, rec))
		require.NoError(t, repo.Delete(ctx, rec.ID))

		_, err := repo.FindByID(ctx, rec.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, repo.Delete(ctx, rec.ID))
	})
}
