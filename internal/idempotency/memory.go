package idempotency

import (
	"context"
	"sync"
	"time"
)

type memKey struct {
	form string
	tok  Token
}

// MemoryStore is a process-local Store. Entries expire after the TTL given
// to NewMemoryStore; a zero TTL keeps them forever.
type MemoryStore struct {
	ttl time.Duration
	now clock

	mu      sync.RWMutex
	entries map[memKey]memEntry
}

type memEntry struct {
	c         Completion
	expiresAt time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[memKey]memEntry)}
}

func (s *MemoryStore) Completed(_ context.Context, form string, tok Token) (bool, error) {
	s.mu.RLock()
	e, ok := s.entries[memKey{form, tok}]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return e.expiresAt.IsZero() || s.now().Before(e.expiresAt), nil
}

func (s *MemoryStore) MarkCompleted(_ context.Context, c Completion) error {
	e := memEntry{c: c}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey{c.FormID, c.Token}
	if old, ok := s.entries[k]; ok && (old.expiresAt.IsZero() || s.now().Before(old.expiresAt)) {
		return nil
	}
	s.entries[k] = e
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
