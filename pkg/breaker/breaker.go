package breaker

import (
	"sync"
	"time"
)

// State is a provider's lifecycle status.
type State int

const (
	// StateHealthy means the provider is serving requests normally.
	StateHealthy State = iota

	// StateDegraded means the provider has failed recently but is still
	// being tried. It is also the half-open trial state after an open
	// circuit's timeout elapses.
	StateDegraded

	// StateCircuitOpen means the provider is skipped until the breaker
	// timeout elapses. Invariant: consecutive failures >= threshold.
	StateCircuitOpen
)

// String returns the state's stable name.
func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// latencyWindowSize bounds the rolling response-time window.
const latencyWindowSize = 100

// Snapshot is a point-in-time copy of a breaker's runtime state.
type Snapshot struct {
	// State is the current lifecycle status.
	State State

	// ConsecutiveFailures is the current failure streak.
	ConsecutiveFailures int

	// LastFailure is when the most recent failure was recorded.
	// Zero when no failure has occurred.
	LastFailure time.Time

	// TotalRequests is the cumulative successful request count.
	TotalRequests int64

	// TotalCost is the cumulative cost of successful requests in USD.
	TotalCost float64

	// AvgLatency is the mean of the rolling latency window.
	// Zero when no request has completed.
	AvgLatency time.Duration
}

// Breaker is the circuit breaker and runtime-state record for one provider.
type Breaker struct {
	mu sync.Mutex

	threshold int
	timeout   time.Duration

	state               State
	consecutiveFailures int
	lastFailure         time.Time

	// trialInFlight is set while the single half-open trial request is
	// outstanding, so concurrent callers cannot pile onto a recovering
	// provider.
	trialInFlight bool

	latencies     []time.Duration
	totalRequests int64
	totalCost     float64

	// now is a test seam, defaults to time.Now.
	now func() time.Time
}

// New creates a breaker that opens after threshold consecutive failures
// and admits a trial request once timeout has elapsed since the last
// failure.
func New(threshold int, timeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 1
	}

	return &Breaker{
		threshold: threshold,
		timeout:   timeout,
		state:     StateHealthy,
		latencies: make([]time.Duration, 0, latencyWindowSize),
		now:       time.Now,
	}
}

// Allow reports whether a request may be sent to the provider.
//
// Healthy and Degraded providers are always admitted. An open circuit
// rejects until the timeout has elapsed since the last failure, then
// admits exactly one trial request in Degraded; further callers are
// rejected until that trial resolves via RecordSuccess or RecordFailure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateCircuitOpen {
		return true
	}
	if b.trialInFlight {
		return false
	}
	if b.now().Sub(b.lastFailure) < b.timeout {
		return false
	}

	// Half-open: one trial in Degraded.
	b.state = StateDegraded
	b.trialInFlight = true
	return true
}

// RecordFailure registers a failed request. The failure streak grows and
// the circuit opens once it reaches the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false
	b.consecutiveFailures++
	b.lastFailure = b.now()

	if b.consecutiveFailures >= b.threshold {
		b.state = StateCircuitOpen
	} else {
		b.state = StateDegraded
	}
}

// RecordSuccess registers a completed request and resets the breaker to
// Healthy. Latency joins the bounded rolling window; cost and request
// counters accumulate.
func (b *Breaker) RecordSuccess(latency time.Duration, cost float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false
	b.consecutiveFailures = 0
	b.state = StateHealthy

	b.totalRequests++
	b.totalCost += cost

	if len(b.latencies) >= latencyWindowSize {
		b.latencies = append(b.latencies[1:], latency)
	} else {
		b.latencies = append(b.latencies, latency)
	}
}

// State returns the current lifecycle status.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats returns a point-in-time copy of the runtime state.
func (b *Breaker) Stats() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	var avg time.Duration
	if len(b.latencies) > 0 {
		var sum time.Duration
		for _, l := range b.latencies {
			sum += l
		}
		avg = sum / time.Duration(len(b.latencies))
	}

	return Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailure:         b.lastFailure,
		TotalRequests:       b.totalRequests,
		TotalCost:           b.totalCost,
		AvgLatency:          avg,
	}
}
