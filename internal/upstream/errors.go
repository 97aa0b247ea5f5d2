package upstream

import "fmt"

// Error is a failed upstream call: transport error, non-2xx status, or an
// unparsable reply body (Malformed). It is always surfaced to the caller;
// the engine records no stats and writes no cache entry for the attempt.
type Error struct {
	StatusCode int
	Message    string
	Malformed  bool
}

func (e *Error) Error() string {
	if e.Malformed {
		return fmt.Sprintf("upstream reply malformed (status %d): %s", e.StatusCode, e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream error: %d - %s", e.StatusCode, e.Message)
	}
	return "upstream error: " + e.Message
}
