// Package metrics exposes the relay's Prometheus metrics.
//
// A Collector owns its own registry so multiple relays can coexist in one
// process (and so tests never trip duplicate-registration panics on the
// global default registry). All recording methods are safe to call on a
// nil Collector, which lets callers treat metrics as strictly optional.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"helmsman-ai/relay/pkg/config"
)

// requestDurationBuckets covers typical LLM request latencies.
var requestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}

// Collector records relay metrics into its own Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	providerErrors  *prometheus.CounterVec
	fallbackDepth   prometheus.Histogram
	tokensTotal     *prometheus.CounterVec
	costTotal       *prometheus.CounterVec
	providerHealth  *prometheus.GaugeVec
	circuitState    *prometheus.GaugeVec
	budgetUsage     *prometheus.GaugeVec
	pipelinePaused  prometheus.Gauge
}

// NewCollector creates a collector with a fresh registry.
func NewCollector(cfg config.MetricsConfig) *Collector {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "relay"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Completed generation requests by provider, model, and status.",
			},
			[]string{"provider", "model", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Generation request latency in seconds.",
				Buckets:   requestDurationBuckets,
			},
			[]string{"provider"},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Classified provider errors by kind.",
			},
			[]string{"provider", "kind"},
		),
		fallbackDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fallback_depth",
				Help:      "How many providers a request tried before succeeding or failing.",
				Buckets:   []float64{1, 2, 3, 4, 5, 8},
			},
		),
		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "Tokens consumed by provider and direction.",
			},
			[]string{"provider", "direction"},
		),
		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cost_usd_total",
				Help:      "Accumulated request cost in USD by provider and model.",
			},
			[]string{"provider", "model"},
		),
		providerHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_health",
				Help:      "Provider health from the last check (1=healthy, 0=unhealthy).",
			},
			[]string{"provider"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Provider circuit state (0=healthy, 1=degraded, 2=open).",
			},
			[]string{"provider"},
		),
		budgetUsage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "budget_usage_percent",
				Help:      "Budget usage percentage by period.",
			},
			[]string{"period"},
		),
		pipelinePaused: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pipeline_paused",
				Help:      "Whether the pipeline is paused (1) or serving (0).",
			},
		),
	}

	c.registry.MustRegister(
		c.requests,
		c.requestDuration,
		c.providerErrors,
		c.fallbackDepth,
		c.tokensTotal,
		c.costTotal,
		c.providerHealth,
		c.circuitState,
		c.budgetUsage,
		c.pipelinePaused,
	)
	return c
}

// RecordRequest records one completed generation attempt outcome.
func (c *Collector) RecordRequest(provider, model, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(provider, model, status).Inc()
	c.requestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordError records a classified provider error.
func (c *Collector) RecordError(provider, kind string) {
	if c == nil {
		return
	}
	c.providerErrors.WithLabelValues(provider, kind).Inc()
}

// RecordFallbackDepth records how many providers one request tried.
func (c *Collector) RecordFallbackDepth(depth int) {
	if c == nil {
		return
	}
	c.fallbackDepth.Observe(float64(depth))
}

// RecordUsage records a successful request's tokens and cost.
func (c *Collector) RecordUsage(provider, model string, promptTokens, completionTokens int, cost float64) {
	if c == nil {
		return
	}
	c.tokensTotal.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	c.tokensTotal.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	c.costTotal.WithLabelValues(provider, model).Add(cost)
}

// SetProviderHealth publishes a provider's latest health check outcome.
func (c *Collector) SetProviderHealth(provider string, healthy bool) {
	if c == nil {
		return
	}
	v := 0.0
	if healthy {
		v = 1.0
	}
	c.providerHealth.WithLabelValues(provider).Set(v)
}

// SetCircuitState publishes a provider's circuit state.
func (c *Collector) SetCircuitState(provider string, state float64) {
	if c == nil {
		return
	}
	c.circuitState.WithLabelValues(provider).Set(state)
}

// SetBudgetUsage publishes a period's budget usage percentage.
func (c *Collector) SetBudgetUsage(period string, percent float64) {
	if c == nil {
		return
	}
	c.budgetUsage.WithLabelValues(period).Set(percent)
}

// SetPipelinePaused publishes the pipeline pause flag.
func (c *Collector) SetPipelinePaused(paused bool) {
	if c == nil {
		return
	}
	v := 0.0
	if paused {
		v = 1.0
	}
	c.pipelinePaused.Set(v)
}

// Registry exposes the collector's registry for test assertions.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the HTTP handler serving this collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
