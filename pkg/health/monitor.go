package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"helmsman-ai/relay/pkg/providers"
)

const (
	// latencyWindowSize bounds the rolling response-time window.
	latencyWindowSize = 100

	// resolvedRetention is how long resolved alerts are kept.
	resolvedRetention = 24 * time.Hour
)

// Config contains the health monitor's thresholds.
type Config struct {
	// CheckInterval is the background loop's probe interval.
	CheckInterval time.Duration

	// CheckTimeout bounds each individual probe.
	CheckTimeout time.Duration

	// ResponseTimeThreshold separates Healthy from Degraded.
	ResponseTimeThreshold time.Duration

	// FailureThreshold is the consecutive-failure count that opens an
	// alert.
	FailureThreshold int

	// MaxHistorySize bounds each provider's check history.
	MaxHistorySize int
}

// providerState is one provider's mutable aggregate.
type providerState struct {
	metrics   Metrics
	latencies []time.Duration
}

// Monitor probes providers, maintains per-provider metrics and history,
// and raises alerts.
type Monitor struct {
	mu sync.Mutex

	config    Config
	providers map[string]providers.Provider
	states    map[string]*providerState
	history   map[string][]CheckResult

	// alerts is keyed provider + "/" + condition; resolved alerts stay
	// until pruned.
	alerts    map[string]*Alert
	callbacks []AlertFunc

	cancel context.CancelFunc
	done   chan struct{}

	logger *slog.Logger

	// now is a test seam, defaults to time.Now.
	now func() time.Time
}

// NewMonitor creates a health monitor with the given thresholds.
func NewMonitor(config Config) *Monitor {
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = 10 * time.Second
	}
	if config.ResponseTimeThreshold <= 0 {
		config.ResponseTimeThreshold = 5 * time.Second
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.MaxHistorySize <= 0 {
		config.MaxHistorySize = 100
	}

	return &Monitor{
		config:    config,
		providers: make(map[string]providers.Provider),
		states:    make(map[string]*providerState),
		history:   make(map[string][]CheckResult),
		alerts:    make(map[string]*Alert),
		logger:    slog.Default().With("component", "health"),
		now:       time.Now,
	}
}

// RegisterProvider adds a provider to the monitored set.
func (m *Monitor) RegisterProvider(p providers.Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[p.Name()] = p
}

// OnAlert registers a callback for newly opened alerts.
func (m *Monitor) OnAlert(fn AlertFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// CheckProvider probes one provider under the configured timeout and
// folds the result into its metrics, history, and alerts.
//
// A hung or panicking probe yields a Critical result after the timeout;
// the underlying failure never propagates to the caller.
func (m *Monitor) CheckProvider(ctx context.Context, name string) CheckResult {
	m.mu.Lock()
	p, ok := m.providers[name]
	m.mu.Unlock()

	if !ok {
		return CheckResult{
			Provider:  name,
			Status:    StatusCritical,
			Timestamp: m.now(),
			Message:   fmt.Sprintf("provider %q is not registered", name),
		}
	}

	result := m.probe(ctx, p)
	m.record(result)
	return result
}

// probe runs one health check in its own goroutine so a hung provider
// cannot block the monitor past the timeout.
func (m *Monitor) probe(ctx context.Context, p providers.Provider) CheckResult {
	start := m.now()
	name := p.Name()

	snapCh := make(chan providers.HealthSnapshot, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				snapCh <- providers.HealthSnapshot{
					Provider:  name,
					IsHealthy: false,
					Message:   fmt.Sprintf("health check panicked: %v", r),
				}
			}
		}()

		snapCh <- p.CheckHealth(ctx)
	}()

	select {
	case snap := <-snapCh:
		elapsed := time.Since(start)
		return m.derive(name, snap, elapsed)
	case <-time.After(m.config.CheckTimeout):
		return CheckResult{
			Provider:     name,
			Status:       StatusCritical,
			ResponseTime: time.Since(start),
			Timestamp:    m.now(),
			Message:      fmt.Sprintf("health check timed out after %s", m.config.CheckTimeout),
		}
	case <-ctx.Done():
		return CheckResult{
			Provider:     name,
			Status:       StatusCritical,
			ResponseTime: time.Since(start),
			Timestamp:    m.now(),
			Message:      fmt.Sprintf("health check canceled: %v", ctx.Err()),
		}
	}
}

// derive maps a completed probe's snapshot to a check result.
func (m *Monitor) derive(name string, snap providers.HealthSnapshot, elapsed time.Duration) CheckResult {
	responseTime := snap.Latency
	if responseTime <= 0 {
		responseTime = elapsed
	}

	result := CheckResult{
		Provider:     name,
		ResponseTime: responseTime,
		Timestamp:    m.now(),
	}

	switch {
	case !snap.IsHealthy:
		result.Status = StatusUnhealthy
		result.Message = snap.Message
		if result.Message == "" {
			result.Message = "provider reported unhealthy"
		}
	case responseTime <= m.config.ResponseTimeThreshold:
		result.Status = StatusHealthy
	default:
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("slow response: %s over %s threshold",
			responseTime, m.config.ResponseTimeThreshold)
	}
	return result
}

// CheckAll probes every registered provider concurrently. One provider's
// failure never blocks the others' results.
func (m *Monitor) CheckAll(ctx context.Context) map[string]CheckResult {
	m.mu.Lock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	m.mu.Unlock()

	results := make(map[string]CheckResult, len(names))
	var resultMu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			result := m.CheckProvider(ctx, name)

			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()
		}(name)
	}

	wg.Wait()
	return results
}

// record folds a check result into metrics, history, and alerts.
func (m *Monitor) record(result CheckResult) {
	m.mu.Lock()

	state, ok := m.states[result.Provider]
	if !ok {
		state = &providerState{
			latencies: make([]time.Duration, 0, latencyWindowSize),
		}
		m.states[result.Provider] = state
	}

	met := &state.metrics
	met.TotalChecks++
	if result.Status.ok() {
		met.SuccessfulChecks++
		met.ConsecutiveFailures = 0
		met.LastSuccessfulCheck = result.Timestamp
	} else {
		met.FailedChecks++
		met.ConsecutiveFailures++
		met.LastFailedCheck = result.Timestamp
	}
	met.UptimePercentage = float64(met.SuccessfulChecks) / float64(met.TotalChecks) * 100

	if len(state.latencies) >= latencyWindowSize {
		state.latencies = append(state.latencies[1:], result.ResponseTime)
	} else {
		state.latencies = append(state.latencies, result.ResponseTime)
	}
	var sum time.Duration
	for _, l := range state.latencies {
		sum += l
	}
	met.AvgResponseTime = sum / time.Duration(len(state.latencies))

	hist := append(m.history[result.Provider], result)
	if overflow := len(hist) - m.config.MaxHistorySize; overflow > 0 {
		hist = hist[overflow:]
	}
	m.history[result.Provider] = hist

	opened := m.evaluateAlertsLocked(result, met)
	callbacks := make([]AlertFunc, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, alert := range opened {
		for _, fn := range callbacks {
			m.dispatch(fn, alert)
		}
	}
}

// evaluateAlertsLocked opens and resolves alerts for one result.
// Caller must hold the lock; returns newly opened alerts.
func (m *Monitor) evaluateAlertsLocked(result CheckResult, met *Metrics) []Alert {
	var opened []Alert

	failuresKey := result.Provider + "/" + AlertConsecutiveFailures
	slowKey := result.Provider + "/" + AlertSlowResponse

	if result.Status.ok() {
		// Recovery resolves the failure-streak alert.
		if alert, ok := m.alerts[failuresKey]; ok && !alert.Resolved {
			alert.Resolved = true
			alert.ResolvedAt = result.Timestamp
			m.logger.Info("health alert resolved",
				"provider", result.Provider, "key", alert.Key)
		}

		// Only a fast check clears a slow-response alert.
		if result.Status == StatusHealthy {
			if alert, ok := m.alerts[slowKey]; ok && !alert.Resolved {
				alert.Resolved = true
				alert.ResolvedAt = result.Timestamp
				m.logger.Info("health alert resolved",
					"provider", result.Provider, "key", alert.Key)
			}
		}

		if result.ResponseTime > 2*m.config.ResponseTimeThreshold {
			if alert := m.openAlertLocked(slowKey, Alert{
				Provider: result.Provider,
				Key:      AlertSlowResponse,
				Severity: SeverityWarning,
				Message: fmt.Sprintf("response time %s exceeds 2x threshold (%s)",
					result.ResponseTime, m.config.ResponseTimeThreshold),
				Timestamp: result.Timestamp,
			}); alert != nil {
				opened = append(opened, *alert)
			}
		}
		return opened
	}

	if met.ConsecutiveFailures >= m.config.FailureThreshold {
		if alert := m.openAlertLocked(failuresKey, Alert{
			Provider: result.Provider,
			Key:      AlertConsecutiveFailures,
			Severity: SeverityError,
			Message: fmt.Sprintf("%d consecutive failed health checks: %s",
				met.ConsecutiveFailures, result.Message),
			Timestamp: result.Timestamp,
		}); alert != nil {
			opened = append(opened, *alert)
		}
	}
	return opened
}

// openAlertLocked opens an alert unless one is already open for the key.
// Returns the new alert, or nil when suppressed as a duplicate.
func (m *Monitor) openAlertLocked(key string, alert Alert) *Alert {
	if existing, ok := m.alerts[key]; ok && !existing.Resolved {
		return nil
	}

	alert.ID = uuid.New().String()
	m.alerts[key] = &alert
	m.logger.Warn("health alert opened",
		"provider", alert.Provider,
		"key", alert.Key,
		"severity", alert.Severity.String(),
		"message", alert.Message,
	)
	return &alert
}

// dispatch invokes one alert callback, recovering any panic.
func (m *Monitor) dispatch(fn AlertFunc, alert Alert) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("health alert callback panicked",
				"provider", alert.Provider, "key", alert.Key, "panic", r)
		}
	}()
	fn(alert)
}

// Metrics returns a provider's aggregate, and whether it has been checked.
func (m *Monitor) Metrics(name string) (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.states[name]
	if !ok {
		return Metrics{}, false
	}
	return state.metrics, true
}

// AllMetrics returns every checked provider's aggregate.
func (m *Monitor) AllMetrics() map[string]Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Metrics, len(m.states))
	for name, state := range m.states {
		out[name] = state.metrics
	}
	return out
}

// History returns a copy of a provider's bounded check history,
// oldest first.
func (m *Monitor) History(name string) []CheckResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	hist := m.history[name]
	out := make([]CheckResult, len(hist))
	copy(out, hist)
	return out
}

// ActiveAlerts returns a copy of every unresolved alert.
func (m *Monitor) ActiveAlerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Alert
	for _, alert := range m.alerts {
		if !alert.Resolved {
			out = append(out, *alert)
		}
	}
	return out
}

// ResolveAlert manually resolves an alert by ID.
func (m *Monitor) ResolveAlert(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, alert := range m.alerts {
		if alert.ID == id && !alert.Resolved {
			alert.Resolved = true
			alert.ResolvedAt = m.now()
			return true
		}
	}
	return false
}

// pruneResolvedAlerts drops resolved alerts past the retention window.
func (m *Monitor) pruneResolvedAlerts() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-resolvedRetention)
	for key, alert := range m.alerts {
		if alert.Resolved && alert.ResolvedAt.Before(cutoff) {
			delete(m.alerts, key)
		}
	}
}
