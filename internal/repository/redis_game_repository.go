package repository

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Hash fields of a session key.
const (
	fieldBoard      = "board"
	fieldNextTurn   = "current_turn"
	fieldActive     = "active"
	fieldWinner     = "winner"
	fieldStatus     = "status"
	fieldMode       = "mode"
	fieldDifficulty = "difficulty"
	fieldVersion    = "version"
	fieldUpdatedAt  = "updated_at"
)

type redisGameRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisGameRepository stores each session as a hash under "game:<id>"
// that expires ttl after its last write.
func NewRedisGameRepository(rdb *redis.Client, ttl time.Duration) GameRepository {
	return &redisGameRepository{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("game:%s", id)
}

// Create initializes a new game session in Redis.
func (r *redisGameRepository) Create(ctx context.Context, rec *GameRecord) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Create")
	defer span.End()
	span.SetAttributes(attribute.String("game.id", rec.ID))

	key := sessionKey(rec.ID)
	now := time.Now()
	fields, err := encodeFields(rec, 1, now)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", ErrExists, rec.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, r.ttl)
			return nil
		})
		return err
	}

	if err := r.rdb.Watch(ctx, txf, key); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create game session")
		if errors.Is(err, ErrExists) {
			return err
		}
		return fmt.Errorf("failed to create game in redis: %w", err)
	}
	rec.Version = 1
	rec.UpdatedAt = now
	return nil
}

// FindByID retrieves the current game session from Redis.
func (r *redisGameRepository) FindByID(ctx context.Context, id string) (*GameRecord, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.FindByID")
	defer span.End()
	span.SetAttributes(attribute.String("game.id", id))

	data, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read game session")
		return nil, fmt.Errorf("failed to get game state from redis: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decodeFields(id, data)
}

// Save writes rec back under a WATCH on its key, so a concurrent writer
// surfaces as ErrConflict rather than a lost update.
func (r *redisGameRepository) Save(ctx context.Context, rec *GameRecord) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Save")
	defer span.End()
	span.SetAttributes(attribute.String("game.id", rec.ID), attribute.Int64("game.version", rec.Version))

	key := sessionKey(rec.ID)
	now := time.Now()
	fields, err := encodeFields(rec, rec.Version+1, now)
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, key, fieldVersion).Int64()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
		}
		if err != nil {
			return err
		}
		if stored != rec.Version {
			return fmt.Errorf("%w: %s at version %d, have %d", ErrConflict, rec.ID, stored, rec.Version)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, fields)
			pipe.Expire(ctx, key, r.ttl)
			return nil
		})
		return err
	}

	if err := r.rdb.Watch(ctx, txf, key); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save game session")
		switch {
		case errors.Is(err, redis.TxFailedErr):
			return fmt.Errorf("%w: %s", ErrConflict, rec.ID)
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
			return err
		}
		return fmt.Errorf("failed to save game in redis: %w", err)
	}
	rec.Version++
	rec.UpdatedAt = now
	return nil
}

// Delete removes the session key.
func (r *redisGameRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Delete")
	defer span.End()

	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete game from redis: %w", err)
	}
	return nil
}

// Purge is a no-op: Redis expires session keys on its own.
func (r *redisGameRepository) Purge(ctx context.Context) (int, error) {
	return 0, nil
}

func encodeFields(rec *GameRecord, version int64, updatedAt time.Time) (map[string]interface{}, error) {
	boardJSON, err := json.Marshal(rec.Snapshot.Board)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}
	return map[string]interface{}{
		fieldBoard:      boardJSON,
		fieldNextTurn:   string(rec.Snapshot.CurrentTurn),
		fieldActive:     strconv.FormatBool(rec.Snapshot.Active),
		fieldWinner:     string(rec.Snapshot.Winner),
		fieldStatus:     string(rec.Snapshot.Status),
		fieldMode:       string(rec.Snapshot.Mode),
		fieldDifficulty: string(rec.Difficulty),
		fieldVersion:    version,
		fieldUpdatedAt:  updatedAt.UnixNano(),
	}, nil
}

func decodeFields(id string, data map[string]string) (*GameRecord, error) {
	var board game.Board
	if err := json.Unmarshal([]byte(data[fieldBoard]), &board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	active, err := strconv.ParseBool(data[fieldActive])
	if err != nil {
		return nil, fmt.Errorf("failed to parse active flag: %w", err)
	}
	version, err := strconv.ParseInt(data[fieldVersion], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version: %w", err)
	}
	updatedAt, err := strconv.ParseInt(data[fieldUpdatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return &GameRecord{
		ID: id,
		Snapshot: game.Snapshot{
			Board:       board,
			CurrentTurn: game.PlayerMark(data[fieldNextTurn]),
			Active:      active,
			Winner:      game.PlayerMark(data[fieldWinner]),
			Status:      game.Status(data[fieldStatus]),
			Mode:        game.Mode(data[fieldMode]),
		},
		Difficulty: bot.Difficulty(data[fieldDifficulty]),
		Version:    version,
		UpdatedAt:  time.Unix(0, updatedAt),
	}, nil
}
