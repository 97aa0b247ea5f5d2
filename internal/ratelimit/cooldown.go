// Package ratelimit gates how often each user may invoke the request
// engine, and tracks daily spend per user.
package ratelimit

import (
	"sync"
	"time"
)

const DefaultCooldown = 2 * time.Second

// Cooldown admits at most one call per user per cooldown window. It is a
// last-timestamp check, not a token bucket: bursts beyond one call per
// window are rejected, never queued.
type Cooldown struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration

	// now is the clock; tests override it.
	now func() time.Time
}

func NewCooldown(cooldown time.Duration) *Cooldown {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Cooldown{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Allow reports whether the user may proceed. A rejected call leaves the
// user's timestamp untouched, so the window is measured from the last
// permitted call.
func (c *Cooldown) Allow(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if last, ok := c.last[userID]; ok && now.Sub(last) < c.cooldown {
		return false
	}
	c.last[userID] = now
	return true
}
