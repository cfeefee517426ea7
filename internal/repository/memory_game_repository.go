package repository

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryGameRepository struct {
	mu      sync.Mutex
	records map[string]GameRecord
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryGameRepository keeps sessions in process memory.
func NewMemoryGameRepository(ttl time.Duration) GameRepository {
	return &memoryGameRepository{
		records: make(map[string]GameRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *memoryGameRepository) Create(ctx context.Context, rec *GameRecord) error {
	_, span := tracer.Start(ctx, "GameRepository.Create")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if stored, ok := r.records[rec.ID]; ok && !r.expired(stored) {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}
	rec.Version = 1
	rec.UpdatedAt = r.now()
	r.records[rec.ID] = *rec
	return nil
}

func (r *memoryGameRepository) FindByID(ctx context.Context, id string) (*GameRecord, error) {
	_, span := tracer.Start(ctx, "GameRepository.FindByID")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[id]
	if !ok || r.expired(stored) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &stored, nil
}

func (r *memoryGameRepository) Save(ctx context.Context, rec *GameRecord) error {
	_, span := tracer.Start(ctx, "GameRepository.Save")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[rec.ID]
	if !ok || r.expired(stored) {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	if stored.Version != rec.Version {
		return fmt.Errorf("%w: %s at version %d, have %d", ErrConflict, rec.ID, stored.Version, rec.Version)
	}
	rec.Version++
	rec.UpdatedAt = r.now()
	r.records[rec.ID] = *rec
	return nil
}

func (r *memoryGameRepository) Delete(ctx context.Context, id string) error {
	_, span := tracer.Start(ctx, "GameRepository.Delete")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, id)
	return nil
}

func (r *memoryGameRepository) Purge(ctx context.Context) (int, error) {
	_, span := tracer.Start(ctx, "GameRepository.Purge")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, stored := range r.records {
		if r.expired(stored) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryGameRepository) expired(rec GameRecord) bool {
	return r.now().Sub(rec.UpdatedAt) > r.ttl
}
