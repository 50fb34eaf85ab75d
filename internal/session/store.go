package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store binds opaque client-presented tokens to authenticated user ids.
// Exactly one field is kept per session: the user's id. Implementations
// must treat unknown and expired tokens identically (ok == false).
type Store interface {
	Create(ctx context.Context, userID uint) (string, error)
	Get(ctx context.Context, token string) (userID uint, ok bool, err error)
	Delete(ctx context.Context, token string) error
}

// MemoryStore is the default in-process Store. Suitable for a single
// instance; use the redis backend when running more than one.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	userID    uint
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore with the given session lifetime.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]memorySession),
		now:      time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

// Create registers a new session for the user and returns its token.
func (s *MemoryStore) Create(_ context.Context, userID uint) (string, error) {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memorySession{
		userID:    userID,
		expiresAt: s.now().Add(s.ttl),
	}
	return token, nil
}

// Get resolves a token to a user id. Expired sessions are dropped on access.
func (s *MemoryStore) Get(_ context.Context, token string) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return 0, false, nil
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return 0, false, nil
	}
	return sess.userID, true, nil
}

// Delete removes the session unconditionally. Deleting an unknown token
// is not an error: logout must always succeed.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
