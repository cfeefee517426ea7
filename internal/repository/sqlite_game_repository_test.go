package repository

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/db"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepository(t *testing.T, ttl time.Duration) *sqliteGameRepository {
	t.Helper()
	ctx := context.Background()
	conn, err := db.SQLiteConnect(ctx, filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.InitializeDB(ctx, conn))
	return NewSQLiteGameRepository(conn, ttl).(*sqliteGameRepository)
}

func TestSQLiteGameRepository(t *testing.T) {
	testGameRepository(t, newSQLiteRepository(t, time.Hour))
}

func TestSQLiteGameRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newSQLiteRepository(t, time.Minute)
	repo.now = func() time.Time { return clock }

	stale := newRecord(t)
	require.NoError(t, repo.Create(ctx, stale))

	clock = clock.Add(2 * time.Minute)
	_, err := repo.FindByID(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Save(ctx, stale), ErrNotFound)

	// Create replaces an expired row with the same id.
	require.NoError(t, repo.Create(ctx, stale))
	_, err = repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	n, err := repo.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
