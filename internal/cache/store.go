// Package cache is the content-addressed response cache. It is an optional
// accelerator: any backend failure degrades to "no cache for this call" and
// is never surfaced to the end user.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/supra-heroes/zorgbot/internal/types"
)

var (
	// ErrMiss means no live entry exists for the key. Expired entries
	// report as misses.
	ErrMiss = errors.New("cache: miss")
	// ErrClosed means the store was shut down; all operations fail.
	ErrClosed = errors.New("cache: store closed")
)

// Entry is one cached response. Entries are never mutated in place:
// overwrites replace the whole value (last-writer-wins).
type Entry struct {
	Envelope  types.Envelope `json:"envelope"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Store is a key/value store with per-entry TTL.
type Store interface {
	// Get returns the live entry for key, or ErrMiss.
	Get(ctx context.Context, key string) (*Entry, error)
	// Put stores an envelope under key with the given TTL, replacing any
	// existing entry.
	Put(ctx context.Context, key string, env types.Envelope, ttl time.Duration) error
	// Clear removes all entries whose key starts with prefix and returns
	// the count removed.
	Clear(ctx context.Context, prefix string) (int, error)
	// Close releases the backing resources. Subsequent operations return
	// ErrClosed.
	Close() error
}
