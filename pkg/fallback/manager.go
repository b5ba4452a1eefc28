package fallback

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"helmsman-ai/relay/pkg/breaker"
	"helmsman-ai/relay/pkg/config"
	"helmsman-ai/relay/pkg/costs"
	"helmsman-ai/relay/pkg/limits/ratelimit"
	"helmsman-ai/relay/pkg/providers"
	"helmsman-ai/relay/pkg/telemetry/metrics"
	"helmsman-ai/relay/pkg/telemetry/tracing"
)

// rateLimitWaitCeiling bounds how long a request will sleep for a
// saturated rate limit before skipping the provider. The sliding window
// spans one minute, so a longer wait can never help.
const rateLimitWaitCeiling = time.Minute

// registered pairs a provider with its policy and runtime state.
type registered struct {
	provider providers.Provider
	policy   config.ProviderConfig
	breaker  *breaker.Breaker
}

// ProviderStats is a provider's runtime state as reported to callers.
type ProviderStats struct {
	// Status is the circuit state name (healthy, degraded, circuit_open).
	Status string `json:"status"`

	// TotalRequests is the cumulative successful request count.
	TotalRequests int64 `json:"total_requests"`

	// TotalCost is the cumulative cost in USD.
	TotalCost float64 `json:"total_cost"`

	// AvgResponseTime is the rolling mean latency.
	AvgResponseTime time.Duration `json:"avg_response_time"`

	// ConsecutiveFailures is the current failure streak.
	ConsecutiveFailures int `json:"consecutive_failures"`
}

// Manager owns the provider registry and walks it per request.
// It is safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	providers map[string]*registered

	routing    config.RoutingConfig
	limits     *ratelimit.Registry
	costs      *costs.Monitor
	costPeriod costs.Period
	metrics    *metrics.Collector
	tracer     *tracing.Tracer
	logger     *slog.Logger

	paused        atomic.Bool
	totalRequests atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}

	// sleep is a test seam for the retry and rate-limit waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Manager.
type Option func(*Manager)

// WithCostMonitor wires budget tracking: every successful call is
// recorded and cost-optimized ordering gains realized-cost history.
func WithCostMonitor(m *costs.Monitor) Option {
	return func(mgr *Manager) { mgr.costs = m }
}

// WithMetrics wires Prometheus counters for requests, errors, usage,
// circuit state, and pause state.
func WithMetrics(c *metrics.Collector) Option {
	return func(mgr *Manager) { mgr.metrics = c }
}

// WithTracer wires a span around every fallback walk.
func WithTracer(t *tracing.Tracer) Option {
	return func(mgr *Manager) { mgr.tracer = t }
}

// WithLogger overrides the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(mgr *Manager) { mgr.logger = l }
}

// NewManager creates a manager with no providers registered.
func NewManager(routing config.RoutingConfig, opts ...Option) *Manager {
	m := &Manager{
		providers:  make(map[string]*registered),
		routing:    routing,
		limits:     ratelimit.NewRegistry(),
		costPeriod: costs.PeriodDaily,
		logger:     slog.Default().With("component", "fallback"),
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a provider under its policy. Registering the same name
// again replaces the previous provider and resets its runtime state.
func (m *Manager) Register(p providers.Provider, policy config.ProviderConfig) {
	if policy.Name == "" {
		policy.Name = p.Name()
	}

	m.limits.Register(policy.Name, ratelimit.Config{
		RequestsPerMinute: policy.RateLimitRPM,
		TokensPerMinute:   policy.RateLimitTPM,
	})

	m.mu.Lock()
	m.providers[policy.Name] = &registered{
		provider: p,
		policy:   policy,
		breaker:  breaker.New(m.routing.CircuitBreakerThreshold, m.routing.CircuitBreakerTimeout),
	}
	m.mu.Unlock()
}

// Providers returns the names of all registered providers.
func (m *Manager) Providers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	return names
}

// lookup returns the registration for name, nil when unknown.
func (m *Manager) lookup(name string) *registered {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.providers[name]
}

// Generate routes one request through the fallback walk.
func (m *Manager) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	return m.GenerateWithProvider(ctx, req, "")
}

// GenerateWithProvider routes one request, trying the preferred provider
// first when it names a registered, enabled provider. The remaining
// try-order still follows the configured strategy.
//
// The walk returns the first successful response. On exhaustion it
// returns an *providers.AllProvidersFailed carrying every provider's
// classified error in try order, and pauses the pipeline when that is
// enabled.
func (m *Manager) GenerateWithProvider(ctx context.Context, req *providers.Request, preferred string) (*providers.Response, error) {
	requestID := uuid.NewString()
	logger := m.logger.With("request_id", requestID)

	if m.tracer != nil {
		var span trace.Span
		ctx, span = m.tracer.Start(ctx, "fallback.generate")
		defer span.End()
	}

	if m.paused.Load() {
		return nil, &providers.Error{
			Kind:    providers.KindServiceUnavailable,
			Message: "pipeline is paused: all providers failed on a previous request",
		}
	}

	order := m.tryOrder(req)
	if preferred != "" {
		if reg := m.lookup(preferred); reg != nil && reg.policy.Enabled {
			if contains(order, preferred) {
				order = promote(order, preferred)
			} else {
				order = append([]string{preferred}, order...)
			}
		}
	}
	if len(order) == 0 {
		return nil, &providers.Error{
			Kind:    providers.KindServiceUnavailable,
			Message: "no enabled providers registered",
		}
	}

	estimatedTokens := providers.EstimateTokens(req) + req.MaxTokens

	var failures []*providers.Error
	quotaAborted := false
	for depth, name := range order {
		reg := m.lookup(name)
		if reg == nil {
			continue
		}

		if !reg.breaker.Allow() {
			logger.Debug("skipping provider, circuit open", "provider", name)
			failures = append(failures, &providers.Error{
				Kind:     providers.KindServiceUnavailable,
				Provider: name,
				Message:  "skipped: circuit open",
			})
			continue
		}

		if err := m.admitRateLimit(ctx, name, estimatedTokens, logger); err != nil {
			failures = append(failures, err)
			continue
		}

		resp, perr := m.attemptProvider(ctx, reg, req, logger)
		if perr == nil {
			m.totalRequests.Add(1)
			m.recordSuccess(reg, resp, depth)
			return resp, nil
		}

		failures = append(failures, perr)
		if perr.Kind == providers.KindQuotaExceeded {
			logger.Warn("quota exceeded, aborting fallback walk", "provider", name)
			quotaAborted = true
			break
		}
	}

	// A quota abort leaves untried providers behind; only a walk that
	// exhausted every provider pauses the pipeline.
	if m.routing.EnablePipelinePause && !quotaAborted {
		if m.paused.CompareAndSwap(false, true) {
			logger.Error("all providers failed, pausing pipeline",
				"providers_tried", len(failures))
			m.metrics.SetPipelinePaused(true)
		}
	}
	return nil, &providers.AllProvidersFailed{Errors: failures}
}

// admitRateLimit gates one request on the provider's rate limits.
//
// A rejection with a finite wait sleeps for that long (bounded by
// rateLimitWaitCeiling and the context) and re-checks once; a second
// rejection skips the provider for this request.
func (m *Manager) admitRateLimit(ctx context.Context, name string, estimatedTokens int, logger *slog.Logger) *providers.Error {
	limiter := m.limits.For(name)

	dec := limiter.Admit(estimatedTokens)
	if dec.Allowed {
		return nil
	}

	wait := dec.Wait
	if wait <= 0 || wait > rateLimitWaitCeiling {
		wait = rateLimitWaitCeiling
	}
	logger.Debug("rate limited, waiting", "provider", name, "wait", wait, "reason", dec.Reason)

	if err := m.sleep(ctx, wait); err != nil {
		return &providers.Error{
			Kind:     providers.KindTimeout,
			Provider: name,
			Message:  "canceled while waiting for rate limit",
			Cause:    err,
		}
	}

	if dec = limiter.Admit(estimatedTokens); dec.Allowed {
		return nil
	}
	return &providers.Error{
		Kind:       providers.KindRateLimited,
		Provider:   name,
		Message:    dec.Reason,
		RetryAfter: dec.Wait,
	}
}

// attemptProvider calls one provider with bounded retries.
//
// Transient errors back off exponentially from the policy's RetryDelay,
// doubling per attempt and capped at the routing MaxRetryDelay; a
// rate-limit error's own retry-after hint takes precedence when present.
// Terminal kinds stop retrying immediately, and every failed attempt is
// recorded against the provider's breaker.
func (m *Manager) attemptProvider(ctx context.Context, reg *registered, req *providers.Request, logger *slog.Logger) (*providers.Response, *providers.Error) {
	name := reg.policy.Name
	attempts := reg.policy.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	delay := reg.policy.RetryDelay

	var lastErr *providers.Error
	for attempt := 0; attempt < attempts; attempt++ {
		callCtx := ctx
		cancel := context.CancelFunc(func() {})
		if reg.policy.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, reg.policy.Timeout)
		}

		start := time.Now()
		resp, err := reg.provider.Generate(callCtx, req)
		latency := time.Since(start)
		cancel()

		if err == nil {
			return resp, nil
		}

		lastErr = providers.Classify(err, name)
		reg.breaker.RecordFailure()
		m.metrics.RecordError(name, lastErr.Kind.String())
		m.metrics.RecordRequest(name, req.Model, "error", latency)
		m.metrics.SetCircuitState(name, float64(reg.breaker.State()))

		logger.Warn("provider call failed",
			"provider", name,
			"kind", lastErr.Kind.String(),
			"attempt", attempt+1,
			"error", lastErr.Message)

		if !lastErr.Retryable() || attempt == attempts-1 {
			break
		}

		wait := delay
		if lastErr.Kind == providers.KindRateLimited && lastErr.RetryAfter > 0 {
			wait = lastErr.RetryAfter
		}
		if max := m.routing.MaxRetryDelay; max > 0 && wait > max {
			wait = max
		}
		if wait > 0 {
			if err := m.sleep(ctx, wait); err != nil {
				break
			}
		}
		delay *= 2
	}
	return nil, lastErr
}

// recordSuccess updates runtime state after a winning call: the breaker
// resets to healthy, rate-limit capacity is consumed, and the cost
// monitor and metrics record the usage.
func (m *Manager) recordSuccess(reg *registered, resp *providers.Response, depth int) {
	name := reg.policy.Name

	reg.breaker.RecordSuccess(resp.Latency, resp.Cost)
	m.limits.For(name).Record(resp.Usage.TotalTokens)

	if m.costs != nil {
		m.costs.Record(name, resp.Cost, resp.Usage.TotalTokens, resp.Model,
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Metadata)
	}

	m.metrics.RecordRequest(name, resp.Model, "success", resp.Latency)
	m.metrics.RecordUsage(name, resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Cost)
	m.metrics.RecordFallbackDepth(depth + 1)
	m.metrics.SetCircuitState(name, float64(reg.breaker.State()))
}

// SetStrategy swaps the routing strategy at runtime (config hot reload).
// Unknown names are ignored by tryOrder, which falls back to
// smart-fallback ordering.
func (m *Manager) SetStrategy(strategy string) {
	m.mu.Lock()
	m.routing.Strategy = strategy
	m.mu.Unlock()
}

// IsPaused reports whether the pipeline pause flag is set.
func (m *Manager) IsPaused() bool {
	return m.paused.Load()
}

// ResumePipeline clears the pause flag. It reports whether the pipeline
// was actually paused.
func (m *Manager) ResumePipeline() bool {
	resumed := m.paused.CompareAndSwap(true, false)
	if resumed {
		m.logger.Info("pipeline resumed manually")
		m.metrics.SetPipelinePaused(false)
	}
	return resumed
}

// Stats returns every registered provider's runtime state.
func (m *Manager) Stats() map[string]ProviderStats {
	m.mu.Lock()
	regs := make(map[string]*registered, len(m.providers))
	for name, reg := range m.providers {
		regs[name] = reg
	}
	m.mu.Unlock()

	out := make(map[string]ProviderStats, len(regs))
	for name, reg := range regs {
		snap := reg.breaker.Stats()
		out[name] = ProviderStats{
			Status:              snap.State.String(),
			TotalRequests:       snap.TotalRequests,
			TotalCost:           snap.TotalCost,
			AvgResponseTime:     snap.AvgLatency,
			ConsecutiveFailures: snap.ConsecutiveFailures,
		}
	}
	return out
}

// promote moves name to the front of order if present.
func promote(order []string, name string) []string {
	for i, n := range order {
		if n == name {
			out := make([]string, 0, len(order))
			out = append(out, name)
			out = append(out, order[:i]...)
			out = append(out, order[i+1:]...)
			return out
		}
	}
	return order
}

func contains(order []string, name string) bool {
	for _, n := range order {
		if n == name {
			return true
		}
	}
	return false
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
