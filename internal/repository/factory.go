package repository

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/config"
	"ctchen222/minimax-tic-tac-toe/internal/db"
	"fmt"
	"log/slog"
)

// New opens the session store selected by cfg.StoreBackend. The returned
// close function releases the underlying client.
func New(ctx context.Context, cfg *config.Config) (GameRepository, func() error, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		slog.InfoContext(ctx, "Using redis session store", "redis.addr", cfg.RedisAddr)
		return NewRedisGameRepository(rdb, cfg.SessionTTL), rdb.Close, nil

	case config.BackendSQLite:
		conn, err := db.SQLiteConnect(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := db.InitializeDB(ctx, conn); err != nil {
			conn.Close()
			return nil, nil, err
		}
		slog.InfoContext(ctx, "Using sqlite session store", "db.path", cfg.SQLitePath)
		return NewSQLiteGameRepository(conn, cfg.SessionTTL), conn.Close, nil

	case config.BackendMemory:
		slog.InfoContext(ctx, "Using in-memory session store")
		return NewMemoryGameRepository(cfg.SessionTTL), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("%w: STORE_BACKEND %q", config.ErrInvalidConfig, cfg.StoreBackend)
}
