package accounting

import "sync"

// Snapshot is a read-only copy of the running counters.
type Snapshot struct {
	RequestsToUpstream int64   `json:"requests_to_upstream"`
	CacheHits          int64   `json:"cache_hits"`
	TotalCostUSD       float64 `json:"total_cost_usd"`
	InputTokens        int64   `json:"input_tokens"`
	OutputTokens       int64   `json:"output_tokens"`
	RoutedToSmall      int64   `json:"routed_to_small"`
	RoutedToLarge      int64   `json:"routed_to_large"`
}

// Stats accumulates process-wide usage counters. All counters are additive
// and monotonic; only Reset decreases them.
type Stats struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewStats() *Stats {
	return &Stats{}
}

// RecordUpstream accumulates one successful upstream call.
func (s *Stats) RecordUpstream(inputTokens, outputTokens int, costUSD float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.RequestsToUpstream++
	s.snap.InputTokens += int64(inputTokens)
	s.snap.OutputTokens += int64(outputTokens)
	s.snap.TotalCostUSD += costUSD
}

// RecordCacheHit accumulates one request served from the cache.
func (s *Stats) RecordCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.CacheHits++
}

// RecordRouted accumulates one router decision for the given tier.
// Explicit model overrides bypass routing and are not counted.
func (s *Stats) RecordRouted(large bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if large {
		s.snap.RoutedToLarge++
	} else {
		s.snap.RoutedToSmall++
	}
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Reset zeroes all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{}
}
