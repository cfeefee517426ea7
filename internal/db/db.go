package db

import (
	"context"
	"fmt"
	"log/slog"

	_ "github.com/glebarez/go-sqlite"
	"github.com/jmoiron/sqlx"
)

// driverName is the database/sql name registered by glebarez/go-sqlite.
const driverName = "sqlite"

// SQLiteConnect opens the SQLite database at path and checks it is reachable.
func SQLiteConnect(ctx context.Context, path string) (*sqlx.DB, error) {
	pool, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	pool.SetMaxOpenConns(1)
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	slog.InfoContext(ctx, "Connected to sqlite database", "db.path", path)
	return pool, nil
}

// InitializeDB creates the session table if it doesn't exist.
func InitializeDB(ctx context.Context, db *sqlx.DB) error {
	sessionSchema := `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		board TEXT NOT NULL,
		current_turn TEXT NOT NULL,
		active INTEGER NOT NULL,
		winner TEXT NOT NULL,
		status TEXT NOT NULL,
		mode TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`

	if _, err := db.ExecContext(ctx, sessionSchema); err != nil {
		return fmt.Errorf("failed to create game_sessions table: %w", err)
	}

	slog.InfoContext(ctx, "DB schema verified")
	return nil
}
