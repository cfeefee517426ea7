package repository

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
)

//go:generate mockgen -destination=mocks/game_repository_mock.go -package=mocks . GameRepository

var tracer = otel.Tracer("repository.game")

var (
	ErrNotFound = errors.New("game session not found")
	ErrExists   = errors.New("game session already exists")
	ErrConflict = errors.New("game session was modified concurrently")
)

// GameRecord is one stored game session.
type GameRecord struct {
	ID         string
	Snapshot   game.Snapshot
	Difficulty bot.Difficulty
	// Version is bumped by every successful Save and guards against lost updates.
	Version   int64
	UpdatedAt time.Time
}

// GameRepository defines the interface for game session storage. Sessions
// expire once they have not been written for the configured TTL.
type GameRepository interface {
	// Create stores a new record at version 1.
	Create(ctx context.Context, rec *GameRecord) error
	FindByID(ctx context.Context, id string) (*GameRecord, error)
	// Save overwrites the record if the stored version still equals
	// rec.Version, then advances rec.Version.
	Save(ctx context.Context, rec *GameRecord) error
	Delete(ctx context.Context, id string) error
	// Purge drops expired sessions and reports how many were removed.
	Purge(ctx context.Context) (int, error)
}
