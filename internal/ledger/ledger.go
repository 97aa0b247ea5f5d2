// Package ledger persists one row per answered request for offline cost
// reporting. It is best-effort: a missing or unreachable database never
// affects the chat path.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is one answered request.
type Record struct {
	RequestID    string
	UserID       string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Cached       bool
}

// Ledger writes usage records to PostgreSQL. A nil pool disables it.
type Ledger struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Ledger {
	return &Ledger{db: db}
}

// Enabled reports whether a database is attached.
func (l *Ledger) Enabled() bool {
	return l != nil && l.db != nil
}

// Write inserts one usage record.
func (l *Ledger) Write(ctx context.Context, rec Record) error {
	if !l.Enabled() {
		return nil
	}
	_, err := l.db.Exec(ctx, `
		INSERT INTO usage_log (request_id, user_id, model, input_tokens, output_tokens, cost_usd, cached, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`, rec.RequestID, rec.UserID, rec.Model, rec.InputTokens, rec.OutputTokens, rec.CostUSD, rec.Cached)
	if err != nil {
		return fmt.Errorf("insert usage_log: %w", err)
	}
	return nil
}

// WriteAsync inserts the record on a detached goroutine with a short
// timeout, logging nothing and blocking nobody. Errors are reported to
// onErr, which may be nil.
func (l *Ledger) WriteAsync(rec Record, onErr func(error)) {
	if !l.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.Write(ctx, rec); err != nil && onErr != nil {
			onErr(err)
		}
	}()
}
