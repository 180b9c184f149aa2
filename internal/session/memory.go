// ABOUTME: In-memory session store for development and tests
// ABOUTME: Map-based with lazy TTL expiry, not durable across restarts

package session

import (
	"context"
	"sync"
	"time"
)

// memoryEntry pairs a stored session with its expiry deadline.
type memoryEntry struct {
	sess      Session
	expiresAt time.Time
}

// MemoryStore implements Store using an in-process map.
// State is lost on restart and never shared between instances, so it is
// rejected by config validation in production.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]memoryEntry
	ttl      time.Duration
}

// NewMemoryStore creates an in-memory session store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{
		sessions: make(map[int64]memoryEntry),
		ttl:      ttl,
	}
}

// Get implements Store.
// Returns (nil, nil) if the session is not found or has expired.
func (s *MemoryStore) Get(ctx context.Context, userID int64) (*Session, error) {
	s.mu.RLock()
	entry, exists := s.sessions[userID]
	s.mu.RUnlock()

	if !exists {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		// Expired entries are removed lazily on the next read
		s.mu.Lock()
		delete(s.sessions, userID)
		s.mu.Unlock()
		return nil, nil
	}

	sess := entry.sess
	return &sess, nil
}

// Set implements Store.
// Stamps CreatedAt on first write and UpdatedAt on every write.
func (s *MemoryStore) Set(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	s.sessions[sess.UserID] = memoryEntry{
		sess:      *sess,
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
	return nil
}

// Ping implements Store. The map is always reachable.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	return nil
}
