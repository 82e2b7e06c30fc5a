package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// memoryRepo keeps sessions for the lifetime of the process. Sessions are
// copied on the way in and out so callers never share state with the store.
type memoryRepo struct {
	mu   sync.RWMutex
	data map[uuid.UUID]*Session
	now  func() time.Time
}

func NewMemoryRepository() Repository {
	return &memoryRepo{
		data: make(map[uuid.UUID]*Session),
		now:  time.Now,
	}
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.data[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *memoryRepo) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := r.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[s.ID] = s.Clone()
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.data, id)
	return nil
}
