package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/supra-heroes/zorgbot/internal/types"
)

// MemoryStore is an in-process Store used when no Redis backend is
// configured, and by tests. Expired entries report as misses and are
// purged lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	closed  bool

	// Now is the clock; tests override it to exercise TTL expiry.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		Now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !s.Now().Before(entry.ExpiresAt) {
		delete(s.entries, key)
		return nil, ErrMiss
	}
	return &entry, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, env types.Envelope, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	s.entries[key] = Entry{Envelope: env, ExpiresAt: s.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	return nil
}
