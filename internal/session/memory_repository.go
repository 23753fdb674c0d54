package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Repository stores sessions by ID.
type Repository interface {
	// Get returns the session for id, creating it if needed. An empty id
	// creates a session with a fresh ID.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete forgets a session.
	Delete(ctx context.Context, id string) error
}

// MemoryRepository is an in-memory session store.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]*Session),
	}
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (*Session, error) {
	if id != "" {
		r.mu.RLock()
		s, exists := r.sessions[id]
		r.mu.RUnlock()
		if exists {
			return s, nil
		}
	} else {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// another request may have created it in between
	if s, exists := r.sessions[id]; exists {
		return s, nil
	}
	s := New(id)
	r.sessions[id] = s
	return s, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

var _ Repository = (*MemoryRepository)(nil)
