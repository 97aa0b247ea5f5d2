// Package conversation keeps the bounded per-user chat history that feeds
// the request engine.
package conversation

import (
	"sync"

	"github.com/supra-heroes/zorgbot/internal/types"
)

// Buffer holds per-user conversation history. Each user's history is capped
// at 2*maxTurns messages; the oldest turns are evicted first, and the head
// of the buffer is never an orphaned assistant reply.
//
// User cardinality is unbounded: histories for inactive users are kept
// until an explicit Reset. Cross-user eviction was deliberately left out.
type Buffer struct {
	mu       sync.Mutex
	history  map[string][]types.Message
	maxTurns int
}

const DefaultMaxTurns = 10

func NewBuffer(maxTurns int) *Buffer {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Buffer{
		history:  make(map[string][]types.Message),
		maxTurns: maxTurns,
	}
}

// Append sanitizes content, appends the turn to the user's history, and
// enforces the pair-eviction cap. Turns do not always alternate: a failed
// upstream call leaves a user message with no reply, so after evicting
// pairs any assistant turn left at the head is dropped too.
func (b *Buffer) Append(userID, role, content string) {
	msg := types.Message{Role: role, Content: Sanitize(content)}

	b.mu.Lock()
	defer b.mu.Unlock()

	h := append(b.history[userID], msg)

	limit := b.maxTurns * 2
	for len(h) > limit {
		h = h[2:]
	}
	for len(h) > 0 && h[0].Role == types.RoleAssistant {
		h = h[1:]
	}
	b.history[userID] = h
}

// History returns a copy of the user's ordered history.
func (b *Buffer) History(userID string) []types.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.history[userID]
	out := make([]types.Message, len(h))
	copy(out, h)
	return out
}

// Reset clears history for a single user.
func (b *Buffer) Reset(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.history, userID)
}
