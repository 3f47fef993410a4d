package repositories

import (
	"context"
	"errors"
	"sync"

	"github.com/Dosada05/cue-club/models"
)

type memoryBracketRepository struct {
	mu    sync.RWMutex
	store map[string]*models.BracketSnapshot
}

// NewMemoryBracketRepository используется без DATABASE_URL и в тестах.
func NewMemoryBracketRepository() BracketRepository {
	return &memoryBracketRepository{store: make(map[string]*models.BracketSnapshot)}
}

func (r *memoryBracketRepository) Load(ctx context.Context, tournamentID string) (*models.BracketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	snap, ok := r.store[tournamentID]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrBracketNotFound
	}
	return copySnapshot(snap)
}

func (r *memoryBracketRepository) Save(ctx context.Context, tournamentID string, snap *models.BracketSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return errors.New("bracket snapshot cannot be nil")
	}
	stored, err := copySnapshot(snap)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.store[tournamentID] = stored
	r.mu.Unlock()
	return nil
}

func (r *memoryBracketRepository) Delete(ctx context.Context, tournamentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.store[tournamentID]; !ok {
		return ErrBracketNotFound
	}
	delete(r.store, tournamentID)
	return nil
}
