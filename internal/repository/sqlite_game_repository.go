package repository

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// sessionRow mirrors the game_sessions table.
type sessionRow struct {
	ID          string `db:"id"`
	Board       string `db:"board"`
	CurrentTurn string `db:"current_turn"`
	Active      bool   `db:"active"`
	Winner      string `db:"winner"`
	Status      string `db:"status"`
	Mode        string `db:"mode"`
	Difficulty  string `db:"difficulty"`
	Version     int64  `db:"version"`
	UpdatedAt   int64  `db:"updated_at"`
}

type sqliteGameRepository struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteGameRepository stores sessions in the game_sessions table created
// by db.InitializeDB.
func NewSQLiteGameRepository(db *sqlx.DB, ttl time.Duration) GameRepository {
	return &sqliteGameRepository{db: db, ttl: ttl, now: time.Now}
}

func (r *sqliteGameRepository) Create(ctx context.Context, rec *GameRecord) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Create")
	defer span.End()
	span.SetAttributes(attribute.String("game.id", rec.ID))

	now := r.now()
	row, err := toRow(rec, 1, now)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// An expired row with the same id may still be present.
	if _, err := tx.ExecContext(ctx, `DELETE FROM game_sessions WHERE id = ? AND updated_at < ?`, rec.ID, r.cutoff()); err != nil {
		return fmt.Errorf("failed to clear expired session: %w", err)
	}

	query := `INSERT INTO game_sessions (id, board, current_turn, active, winner, status, mode, difficulty, version, updated_at)
		VALUES (:id, :board, :current_turn, :active, :winner, :status, :mode, :difficulty, :version, :updated_at)
		ON CONFLICT(id) DO NOTHING`
	res, err := tx.NamedExecContext(ctx, query, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to insert game session")
		return fmt.Errorf("failed to create game session: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to create game session: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit game session: %w", err)
	}

	rec.Version = 1
	rec.UpdatedAt = now
	return nil
}

func (r *sqliteGameRepository) FindByID(ctx context.Context, id string) (*GameRecord, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.FindByID")
	defer span.End()
	span.SetAttributes(attribute.String("game.id", id))

	var row sessionRow
	query := `SELECT id, board, current_turn, active, winner, status, mode, difficulty, version, updated_at
		FROM game_sessions WHERE id = ? AND updated_at >= ?`
	if err := r.db.GetContext(ctx, &row, query, id, r.cutoff()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read game session")
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}
	return row.toRecord()
}

// Save is a compare-and-swap on the version column.
func (r *sqliteGameRepository) Save(ctx context.Context, rec *GameRecord) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Save")
	defer span.End()
	span.SetAttributes(attribute.String("game.id", rec.ID), attribute.Int64("game.version", rec.Version))

	now := r.now()
	row, err := toRow(rec, rec.Version+1, now)
	if err != nil {
		return err
	}

	query := `UPDATE game_sessions
		SET board = ?, current_turn = ?, active = ?, winner = ?, status = ?, mode = ?, difficulty = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ? AND updated_at >= ?`
	res, err := r.db.ExecContext(ctx, query,
		row.Board, row.CurrentTurn, row.Active, row.Winner, row.Status, row.Mode, row.Difficulty, row.Version, row.UpdatedAt,
		rec.ID, rec.Version, r.cutoff(),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update game session")
		return fmt.Errorf("failed to save game session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save game session: %w", err)
	}
	if n == 0 {
		// Tell a missing session from a stale version.
		if _, err := r.FindByID(ctx, rec.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrConflict, rec.ID)
	}

	rec.Version++
	rec.UpdatedAt = now
	return nil
}

func (r *sqliteGameRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "GameRepository.Delete")
	defer span.End()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM game_sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete game session: %w", err)
	}
	return nil
}

func (r *sqliteGameRepository) Purge(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "GameRepository.Purge")
	defer span.End()

	res, err := r.db.ExecContext(ctx, `DELETE FROM game_sessions WHERE updated_at < ?`, r.cutoff())
	if err != nil {
		return 0, fmt.Errorf("failed to purge game sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge game sessions: %w", err)
	}
	return int(n), nil
}

func (r *sqliteGameRepository) cutoff() int64 {
	return r.now().Add(-r.ttl).UnixNano()
}

func toRow(rec *GameRecord, version int64, updatedAt time.Time) (*sessionRow, error) {
	boardJSON, err := json.Marshal(rec.Snapshot.Board)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}
	return &sessionRow{
		ID:          rec.ID,
		Board:       string(boardJSON),
		CurrentTurn: string(rec.Snapshot.CurrentTurn),
		Active:      rec.Snapshot.Active,
		Winner:      string(rec.Snapshot.Winner),
		Status:      string(rec.Snapshot.Status),
		Mode:        string(rec.Snapshot.Mode),
		Difficulty:  string(rec.Difficulty),
		Version:     version,
		UpdatedAt:   updatedAt.UnixNano(),
	}, nil
}

func (row *sessionRow) toRecord() (*GameRecord, error) {
	var board game.Board
	if err := json.Unmarshal([]byte(row.Board), &board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}
	return &GameRecord{
		ID: row.ID,
		Snapshot: game.Snapshot{
			Board:       board,
			CurrentTurn: game.PlayerMark(row.CurrentTurn),
			Active:      row.Active,
			Winner:      game.PlayerMark(row.Winner),
			Status:      game.Status(row.Status),
			Mode:        game.Mode(row.Mode),
		},
		Difficulty: bot.Difficulty(row.Difficulty),
		Version:    row.Version,
		UpdatedAt:  time.Unix(0, row.UpdatedAt),
	}, nil
}
