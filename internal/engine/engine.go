// Package engine orchestrates one chat request: cache lookup, model
// routing, the upstream call, cost accounting, and the cache write-back.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/supra-heroes/zorgbot/internal/accounting"
	"github.com/supra-heroes/zorgbot/internal/cache"
	"github.com/supra-heroes/zorgbot/internal/config"
	"github.com/supra-heroes/zorgbot/internal/router"
	"github.com/supra-heroes/zorgbot/internal/telemetry"
	"github.com/supra-heroes/zorgbot/internal/types"
	"github.com/supra-heroes/zorgbot/internal/upstream"
)

// ErrInvalidInput means the request shape could not be processed.
var ErrInvalidInput = errors.New("engine: invalid input")

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	DefaultCacheTTL    = time.Hour
)

// Completer is the upstream LLM call. *upstream.Client implements it.
type Completer interface {
	Complete(ctx context.Context, req upstream.Request) (*upstream.Response, error)
}

// Config assembles an Engine. The engine owns its stats and cache handle;
// there is no package-level state.
type Config struct {
	Upstream  Completer
	Cache     cache.Store // nil disables caching entirely
	CacheTTL  time.Duration
	AutoRoute bool
	Models    func() *config.ModelsConfig
	Metrics   *telemetry.Metrics // nil disables telemetry
	Logger    *slog.Logger
}

// Engine is the cost-optimized request engine.
type Engine struct {
	upstream  Completer
	store     cache.Store
	cacheTTL  time.Duration
	autoRoute bool
	models    func() *config.ModelsConfig
	stats     *accounting.Stats
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

func New(cfg Config) *Engine {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		upstream:  cfg.Upstream,
		store:     cfg.Cache,
		cacheTTL:  ttl,
		autoRoute: cfg.AutoRoute,
		models:    cfg.Models,
		stats:     accounting.NewStats(),
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// ChatOptions override per-call behavior. Nil fields take defaults:
// auto-routed model, temperature 0.7, max tokens 1000, cache enabled.
type ChatOptions struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
	UseCache    *bool
}

// Chat answers one conversation. Identical requests within the cache TTL
// reach upstream at most once. Two identical requests in flight at the
// same time both miss and both call upstream; only completed responses
// dedupe. Single-flight collapsing would be the fix if that cost matters.
func (e *Engine) Chat(ctx context.Context, messages []types.Message, opts *ChatOptions) (*types.Envelope, error) {
	if len(messages) == 0 {
		return nil, ErrInvalidInput
	}
	if opts == nil {
		opts = &ChatOptions{}
	}

	modelName, profile := e.resolveModel(messages, opts.Model)

	temperature := DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := DefaultMaxTokens
	if opts.MaxTokens != nil {
		maxTokens = *opts.MaxTokens
	}
	useCache := true
	if opts.UseCache != nil {
		useCache = *opts.UseCache
	}

	// Cache failures degrade this call to the upstream path; they are
	// logged and never surfaced.
	cacheable := useCache && e.store != nil
	var cacheKey string
	if cacheable {
		key, err := Fingerprint(messages, modelName, temperature, maxTokens)
		if err != nil {
			return nil, err
		}
		cacheKey = key

		entry, err := e.store.Get(ctx, cacheKey)
		switch {
		case err == nil:
			e.stats.RecordCacheHit()
			if e.metrics != nil {
				e.metrics.RecordCacheHit(modelName)
			}
			env := entry.Envelope
			env.ServedFromCache = true
			return &env, nil
		case errors.Is(err, cache.ErrMiss):
			// fall through to upstream
		default:
			e.logger.Warn("cache unavailable, continuing without it", "error", err)
			cacheable = false
		}
	}

	start := time.Now()
	resp, err := e.upstream.Complete(ctx, upstream.Request{
		Model:       modelName,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordUpstreamError(modelName)
		}
		return nil, err
	}
	durationMs := float64(time.Since(start).Milliseconds())

	cost := accounting.Cost(profile, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	e.stats.RecordUpstream(resp.Usage.InputTokens, resp.Usage.OutputTokens, cost)
	if e.metrics != nil {
		e.metrics.RecordUpstream(modelName, resp.Usage.InputTokens, resp.Usage.OutputTokens, cost, durationMs)
	}

	env := &types.Envelope{
		Content:         resp.Content,
		Model:           modelName,
		Usage:           resp.Usage,
		CostUSD:         cost,
		ServedFromCache: false,
	}

	if cacheable {
		if err := e.store.Put(ctx, cacheKey, *env, e.cacheTTL); err != nil {
			e.logger.Warn("cache write failed", "error", err)
		}
	}

	return env, nil
}

// resolveModel picks the serving model. An explicit override bypasses the
// router and increments no routing counter.
func (e *Engine) resolveModel(messages []types.Message, override string) (string, config.ModelProfile) {
	models := e.models()
	if override != "" {
		return override, models.ByName(override)
	}
	if !e.autoRoute {
		return models.Large.Name, models.Large
	}

	tier := router.Classify(messages)
	e.stats.RecordRouted(tier == config.TierLarge)
	if e.metrics != nil {
		e.metrics.RecordRouted(tier)
	}
	profile := models.Profile(tier)
	return profile.Name, profile
}

// Ask is the single-turn convenience wrapper around Chat.
func (e *Engine) Ask(ctx context.Context, question string) (string, error) {
	resp, err := e.Chat(ctx, []types.Message{{Role: types.RoleUser, Content: question}}, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Stats returns a snapshot of the running counters.
func (e *Engine) Stats() accounting.Snapshot {
	return e.stats.Snapshot()
}

// ResetStats zeroes the running counters.
func (e *Engine) ResetStats() {
	e.stats.Reset()
}

// ClearCache removes all of the engine's cache entries and returns the
// count removed.
func (e *Engine) ClearCache(ctx context.Context) (int, error) {
	if e.store == nil {
		return 0, nil
	}
	return e.store.Clear(ctx, KeyPrefix)
}

// Close releases the cache connection.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}
