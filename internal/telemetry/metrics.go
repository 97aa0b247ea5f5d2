package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	RequestTotal       *prometheus.CounterVec
	CacheHitTotal      prometheus.Counter
	RoutedTotal        *prometheus.CounterVec
	TokensTotal        *prometheus.CounterVec
	CostUSDTotal       *prometheus.CounterVec
	RateLimitedTotal   prometheus.Counter
	UpstreamDurationMs *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics on the default
// registry.
func NewMetrics() *Metrics {
	return NewMetricsOn(nil)
}

// NewMetricsOn registers metrics on the given registerer. A nil registerer
// uses promauto's default.
func NewMetricsOn(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	if reg == nil {
		factory = promauto.With(prometheus.DefaultRegisterer)
	}

	return &Metrics{
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zorgbot_request_total",
			Help: "Total chat requests processed, by model and outcome.",
		}, []string{"model", "outcome"}),

		CacheHitTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "zorgbot_cache_hit_total",
			Help: "Total requests served from the response cache.",
		}),

		RoutedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zorgbot_routed_total",
			Help: "Total router decisions, by tier.",
		}, []string{"tier"}),

		TokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zorgbot_tokens_total",
			Help: "Total tokens processed, by model and direction.",
		}, []string{"model", "direction"}),

		CostUSDTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zorgbot_cost_usd_total",
			Help: "Estimated total upstream cost in USD.",
		}, []string{"model"}),

		RateLimitedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "zorgbot_rate_limited_total",
			Help: "Total chat requests rejected by the per-user cooldown.",
		}),

		UpstreamDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zorgbot_upstream_duration_ms",
			Help:    "Upstream completion call duration in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"model"}),
	}
}

// RecordUpstream records metrics for one successful upstream call.
func (m *Metrics) RecordUpstream(model string, inputTokens, outputTokens int, costUSD, durationMs float64) {
	m.RequestTotal.WithLabelValues(model, "upstream").Inc()
	m.UpstreamDurationMs.WithLabelValues(model).Observe(durationMs)

	if inputTokens > 0 {
		m.TokensTotal.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.TokensTotal.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
	if costUSD > 0 {
		m.CostUSDTotal.WithLabelValues(model).Add(costUSD)
	}
}

// RecordCacheHit records one request served from the cache.
func (m *Metrics) RecordCacheHit(model string) {
	m.RequestTotal.WithLabelValues(model, "cached").Inc()
	m.CacheHitTotal.Inc()
}

// RecordRouted records one router decision.
func (m *Metrics) RecordRouted(tier string) {
	m.RoutedTotal.WithLabelValues(tier).Inc()
}

// RecordUpstreamError records one failed upstream call.
func (m *Metrics) RecordUpstreamError(model string) {
	m.RequestTotal.WithLabelValues(model, "error").Inc()
}

// RecordRateLimited records one cooldown rejection.
func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}
