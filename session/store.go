package session

import (
	"context"
	"sync"

	"github.com/BaSui01/dialogflow/types"
)

// Store persists session contexts. Implementations must be safe for
// concurrent use across different sessions; callers serialize access within
// one session.
type Store interface {
	// Get returns the context for a session, or a SESSION_NOT_FOUND error.
	Get(ctx context.Context, sessionID string) (*Context, error)
	// Save writes the context back.
	Save(ctx context.Context, sc *Context) error
	// Delete destroys a session context. Deleting an absent session is a no-op.
	Delete(ctx context.Context, sessionID string) error
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Context
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Context)}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.sessions[sessionID]
	if !ok {
		return nil, types.NewErrorf(types.ErrSessionNotFound, "session %s not found", sessionID)
	}
	return sc, nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, sc *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sc.SessionID] = sc
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
