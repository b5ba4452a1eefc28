package breaker

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, timeout time.Duration) (*Breaker, *fakeClock) {
	clock := newFakeClock()
	b := New(threshold, timeout)
	b.now = clock.now
	return b, clock
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	for i := 1; i <= 4; i++ {
		b.RecordFailure()
		if got := b.State(); got != StateDegraded {
			t.Fatalf("after %d failures state = %s, want degraded", i, got)
		}
		if !b.Allow() {
			t.Fatalf("degraded provider should still be admitted")
		}
	}

	b.RecordFailure()
	if got := b.State(); got != StateCircuitOpen {
		t.Fatalf("after 5th failure state = %s, want circuit_open", got)
	}
	if b.Allow() {
		t.Error("open circuit should reject before timeout")
	}

	stats := b.Stats()
	if stats.ConsecutiveFailures != 5 {
		t.Errorf("consecutive failures = %d, want 5", stats.ConsecutiveFailures)
	}
	if stats.LastFailure.IsZero() {
		t.Error("last failure time should be recorded")
	}
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	b, clock := newTestBreaker(2, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateCircuitOpen {
		t.Fatal("expected open circuit")
	}

	clock.advance(59 * time.Second)
	if b.Allow() {
		t.Fatal("circuit should stay closed until the timeout elapses")
	}

	clock.advance(2 * time.Second)
	if !b.Allow() {
		t.Fatal("expected trial admission after timeout")
	}
	if b.State() != StateDegraded {
		t.Errorf("trial state = %s, want degraded", b.State())
	}

	// Exactly one trial: further callers wait for the outcome.
	if b.Allow() {
		t.Error("second caller admitted while trial is outstanding")
	}

	// Failed trial reopens the circuit immediately.
	b.RecordFailure()
	if b.State() != StateCircuitOpen {
		t.Errorf("state after failed trial = %s, want circuit_open", b.State())
	}
	if b.Allow() {
		t.Error("reopened circuit should reject")
	}
}

func TestBreaker_SuccessfulTrialCloses(t *testing.T) {
	b, clock := newTestBreaker(2, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	clock.advance(2 * time.Minute)

	if !b.Allow() {
		t.Fatal("expected trial admission")
	}
	b.RecordSuccess(100*time.Millisecond, 0.01)

	if b.State() != StateHealthy {
		t.Errorf("state after successful trial = %s, want healthy", b.State())
	}
	if !b.Allow() {
		t.Error("healthy provider should be admitted")
	}

	stats := b.Stats()
	if stats.ConsecutiveFailures != 0 {
		t.Errorf("consecutive failures = %d, want 0", stats.ConsecutiveFailures)
	}
}

func TestBreaker_SuccessResetsAnywhere(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess(50*time.Millisecond, 0)

	if b.State() != StateHealthy {
		t.Errorf("state = %s, want healthy", b.State())
	}
	if got := b.Stats().ConsecutiveFailures; got != 0 {
		t.Errorf("consecutive failures = %d, want 0", got)
	}
}

func TestBreaker_Stats(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	b.RecordSuccess(100*time.Millisecond, 0.02)
	b.RecordSuccess(300*time.Millisecond, 0.03)

	stats := b.Stats()
	if stats.TotalRequests != 2 {
		t.Errorf("total requests = %d, want 2", stats.TotalRequests)
	}
	if diff := stats.TotalCost - 0.05; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("total cost = %v, want 0.05", stats.TotalCost)
	}
	if stats.AvgLatency != 200*time.Millisecond {
		t.Errorf("avg latency = %s, want 200ms", stats.AvgLatency)
	}
}

func TestBreaker_LatencyWindowBounded(t *testing.T) {
	b, _ := newTestBreaker(5, time.Minute)

	// 150 slow entries, then 100 fast ones: the window must hold only the
	// last 100.
	for i := 0; i < 150; i++ {
		b.RecordSuccess(time.Second, 0)
	}
	for i := 0; i < latencyWindowSize; i++ {
		b.RecordSuccess(10*time.Millisecond, 0)
	}

	stats := b.Stats()
	if stats.AvgLatency != 10*time.Millisecond {
		t.Errorf("avg latency = %s, want 10ms (window not bounded?)", stats.AvgLatency)
	}
	if stats.TotalRequests != 250 {
		t.Errorf("total requests = %d, want 250", stats.TotalRequests)
	}
}

func TestBreaker_ZeroThresholdClamped(t *testing.T) {
	b, _ := newTestBreaker(0, time.Minute)

	b.RecordFailure()
	if b.State() != StateCircuitOpen {
		t.Error("threshold <= 0 should clamp to 1")
	}
}
