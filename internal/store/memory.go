package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/neositio/flowbot/internal/models"
)

// memoryEntry pairs a session with its expiry deadline. A zero deadline
// means the entry never expires.
type memoryEntry struct {
	session  models.Session
	deadline time.Time
}

// MemoryStore is a volatile in-process session store. Expiry is enforced
// with a deadline check on every read instead of a scheduled eviction
// callback, so a read racing the expiry tick can never observe a freed
// entry. Writes replace the whole entry, deadline included.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	slog.Debug("store.NewMemoryStore: creating in-memory session store")
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// cloneData copies a session data map. Callers own the sessions they get
// back; without the copy a caller mutating its map would silently edit the
// stored record through the shared reference.
func cloneData(data map[string]string) map[string]string {
	if data == nil {
		return nil
	}
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// Get returns the session for id, or nil if absent or expired.
func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if entry.expired(time.Now()) {
		s.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have replaced
		// the entry with a fresh deadline.
		if cur, ok := s.entries[id]; ok && cur.expired(time.Now()) {
			delete(s.entries, id)
		}
		s.mu.Unlock()
		return nil, nil
	}
	session := entry.session
	session.Data = cloneData(session.Data)
	return &session, nil
}

// Set stores the session for id, replacing any existing entry and its expiry.
func (s *MemoryStore) Set(ctx context.Context, id string, session models.Session, ttl time.Duration) error {
	entry := memoryEntry{session: session}
	entry.session.Data = cloneData(session.Data)
	if ttl > 0 {
		entry.deadline = time.Now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()
	return nil
}

// Delete removes the session for id. Deleting an absent session is not an error.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// List returns all live sessions keyed by correspondent identifier.
func (s *MemoryStore) List(ctx context.Context) (map[string]models.Session, error) {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Session, len(s.entries))
	for id, entry := range s.entries {
		if entry.expired(now) {
			continue
		}
		session := entry.session
		session.Data = cloneData(session.Data)
		out[id] = session
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
