// Package botapi is the HTTP surface of the bot: chat turns, stats,
// cache administration.
package botapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/supra-heroes/zorgbot/internal/accounting"
	"github.com/supra-heroes/zorgbot/internal/config"
	"github.com/supra-heroes/zorgbot/internal/conversation"
	"github.com/supra-heroes/zorgbot/internal/engine"
	"github.com/supra-heroes/zorgbot/internal/httputil"
	"github.com/supra-heroes/zorgbot/internal/ledger"
	"github.com/supra-heroes/zorgbot/internal/ratelimit"
	"github.com/supra-heroes/zorgbot/internal/telemetry"
	"github.com/supra-heroes/zorgbot/internal/types"
	"github.com/supra-heroes/zorgbot/internal/upstream"
)

// The user-facing reply when the upstream call fails. The failure itself
// is logged; the user gets an apology, not a stack trace.
const apologyMessage = "Sorry, I encountered an error. Please try again in a moment."

// ChatEngine is the part of the request engine the handlers use.
type ChatEngine interface {
	Chat(ctx context.Context, messages []types.Message, opts *engine.ChatOptions) (*types.Envelope, error)
	Stats() accounting.Snapshot
	ResetStats()
	ClearCache(ctx context.Context) (int, error)
}

// Handler holds dependencies for the bot HTTP handlers.
type Handler struct {
	engine  ChatEngine
	buffer  *conversation.Buffer
	limiter *ratelimit.Cooldown
	budget  *ratelimit.BudgetTracker
	usage   *ledger.Ledger
	metrics *telemetry.Metrics
	cfg     func() *config.Config
}

func NewHandler(
	eng ChatEngine,
	buffer *conversation.Buffer,
	limiter *ratelimit.Cooldown,
	budget *ratelimit.BudgetTracker,
	usage *ledger.Ledger,
	metrics *telemetry.Metrics,
	cfg func() *config.Config,
) *Handler {
	return &Handler{
		engine:  eng,
		buffer:  buffer,
		limiter: limiter,
		budget:  budget,
		usage:   usage,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Routes registers the bot endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/chat", h.Chat)
	r.Post("/v1/ask", h.Ask)
	r.Get("/v1/stats", h.GetStats)
	r.Post("/v1/stats/reset", h.ResetStats)
	r.Post("/v1/cache/clear", h.ClearCache)
	r.Delete("/v1/conversations/{userID}", h.ResetConversation)
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type chatResponse struct {
	Reply           string      `json:"reply"`
	Model           string      `json:"model"`
	Usage           types.Usage `json:"usage"`
	CostUSD         float64     `json:"cost_usd"`
	ServedFromCache bool        `json:"served_from_cache"`
}

// Chat handles POST /v1/chat: one conversational turn for one user.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequestError(w, reqID, "user_id is required")
		return
	}
	if req.Message == "" {
		httputil.WriteBadRequestError(w, reqID, "message is required")
		return
	}

	if !h.limiter.Allow(req.UserID) {
		if h.metrics != nil {
			h.metrics.RecordRateLimited()
		}
		httputil.WriteRateLimitError(w, reqID, "Slow down a little and try again.")
		return
	}

	cfg := h.cfg()
	if capCents := cfg.Chat.DailySpendCapCents; capCents > 0 {
		result, _ := h.budget.CheckDailySpend(r.Context(), req.UserID, capCents)
		if !result.Allowed {
			httputil.WriteBudgetExceededError(w, reqID, "Daily budget reached, try again tomorrow.")
			return
		}
	}

	h.buffer.Append(req.UserID, types.RoleUser, req.Message)

	messages := make([]types.Message, 0, 1+2*conversation.DefaultMaxTurns)
	if cfg.Chat.SystemPrompt != "" {
		messages = append(messages, types.Message{Role: types.RoleSystem, Content: cfg.Chat.SystemPrompt})
	}
	messages = append(messages, h.buffer.History(req.UserID)...)

	env, err := h.engine.Chat(r.Context(), messages, nil)
	if err != nil {
		var upErr *upstream.Error
		if errors.As(err, &upErr) {
			slog.Error("upstream call failed",
				"request_id", reqID,
				"user_id", req.UserID,
				"status", upErr.StatusCode,
				"malformed", upErr.Malformed,
			)
			httputil.WriteUpstreamError(w, reqID, apologyMessage)
			return
		}
		slog.Error("chat failed", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, apologyMessage)
		return
	}

	h.buffer.Append(req.UserID, types.RoleAssistant, env.Content)

	if costCents := int64(math.Round(env.CostUSD * 100)); costCents > 0 {
		h.budget.RecordSpend(r.Context(), req.UserID, costCents)
	}

	h.usage.WriteAsync(ledger.Record{
		RequestID:    reqID,
		UserID:       req.UserID,
		Model:        env.Model,
		InputTokens:  env.Usage.InputTokens,
		OutputTokens: env.Usage.OutputTokens,
		CostUSD:      env.CostUSD,
		Cached:       env.ServedFromCache,
	}, func(err error) {
		slog.Warn("usage ledger write failed", "request_id", reqID, "error", err)
	})

	slog.Info("chat turn completed",
		"request_id", reqID,
		"user_id", req.UserID,
		"model", env.Model,
		"input_tokens", env.Usage.InputTokens,
		"output_tokens", env.Usage.OutputTokens,
		"cost_usd", fmt.Sprintf("%.6f", env.CostUSD),
		"cached", env.ServedFromCache,
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{
		Reply:           env.Content,
		Model:           env.Model,
		Usage:           env.Usage,
		CostUSD:         env.CostUSD,
		ServedFromCache: env.ServedFromCache,
	})
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// Ask handles POST /v1/ask: a stateless single-turn question. No history,
// no cooldown, no system prompt.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if req.Question == "" {
		httputil.WriteBadRequestError(w, reqID, "question is required")
		return
	}

	env, err := h.engine.Chat(r.Context(), []types.Message{
		{Role: types.RoleUser, Content: req.Question},
	}, nil)
	if err != nil {
		var upErr *upstream.Error
		if errors.As(err, &upErr) {
			slog.Error("upstream call failed", "request_id", reqID, "status", upErr.StatusCode)
			httputil.WriteUpstreamError(w, reqID, apologyMessage)
			return
		}
		httputil.WriteInternalError(w, reqID, apologyMessage)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(askResponse{Answer: env.Content})
}

type statsResponse struct {
	accounting.Snapshot
	CacheHitRate      string `json:"cache_hit_rate"`
	AvgCostPerRequest string `json:"avg_cost_per_request"`
	EstimatedSavings  string `json:"estimated_savings"`
}

// GetStats handles GET /v1/stats. Rounding to display precision happens
// here and only here; the accumulated counters stay exact.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Stats()

	hitRate := 0.0
	if total := snap.RequestsToUpstream + snap.CacheHits; total > 0 {
		hitRate = float64(snap.CacheHits) / float64(total) * 100
	}
	avgCost := 0.0
	if snap.RequestsToUpstream > 0 {
		avgCost = snap.TotalCostUSD / float64(snap.RequestsToUpstream)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statsResponse{
		Snapshot:          snap,
		CacheHitRate:      fmt.Sprintf("%.1f%%", hitRate),
		AvgCostPerRequest: fmt.Sprintf("$%.6f", avgCost),
		EstimatedSavings:  fmt.Sprintf("$%.6f", float64(snap.CacheHits)*0.001),
	})
}

// ResetStats handles POST /v1/stats/reset.
func (h *Handler) ResetStats(w http.ResponseWriter, r *http.Request) {
	h.engine.ResetStats()
	w.WriteHeader(http.StatusNoContent)
}

type clearCacheResponse struct {
	Cleared int `json:"cleared"`
}

// ClearCache handles POST /v1/cache/clear.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	n, err := h.engine.ClearCache(ctx)
	if err != nil {
		slog.Error("cache clear failed", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Cache clear failed")
		return
	}

	slog.Info("cache cleared", "request_id", reqID, "entries", n)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(clearCacheResponse{Cleared: n})
}

// ResetConversation handles DELETE /v1/conversations/{userID}.
func (h *Handler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httputil.WriteBadRequestError(w, w.Header().Get("X-Request-ID"), "userID is required")
		return
	}
	h.buffer.Reset(userID)
	w.WriteHeader(http.StatusNoContent)
}
