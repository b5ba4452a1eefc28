package health

import (
	"context"
	"strings"
	"testing"
	"time"

	"helmsman-ai/relay/pkg/providers/providertest"
)

func testConfig() Config {
	return Config{
		CheckInterval:         50 * time.Millisecond,
		CheckTimeout:          time.Second,
		ResponseTimeThreshold: 100 * time.Millisecond,
		FailureThreshold:      3,
		MaxHistorySize:        5,
	}
}

func TestMonitor_HealthyCheck(t *testing.T) {
	m := NewMonitor(testConfig())
	m.RegisterProvider(providertest.New("p1"))

	result := m.CheckProvider(context.Background(), "p1")
	if result.Status != StatusHealthy {
		t.Fatalf("status = %s, want healthy (%s)", result.Status, result.Message)
	}
	if result.Provider != "p1" {
		t.Errorf("provider = %q", result.Provider)
	}

	met, ok := m.Metrics("p1")
	if !ok {
		t.Fatal("expected metrics for p1")
	}
	if met.TotalChecks != 1 || met.SuccessfulChecks != 1 || met.FailedChecks != 0 {
		t.Errorf("counters = %d/%d/%d", met.TotalChecks, met.SuccessfulChecks, met.FailedChecks)
	}
	if met.UptimePercentage != 100 {
		t.Errorf("uptime = %v, want 100", met.UptimePercentage)
	}
	if met.LastSuccessfulCheck.IsZero() {
		t.Error("last successful check not set")
	}
}

func TestMonitor_SlowProviderDegraded(t *testing.T) {
	m := NewMonitor(testConfig())
	m.RegisterProvider(providertest.New("slow").WithHealthDelay(150 * time.Millisecond))

	result := m.CheckProvider(context.Background(), "slow")
	if result.Status != StatusDegraded {
		t.Fatalf("status = %s, want degraded", result.Status)
	}
	if !strings.Contains(result.Message, "slow response") {
		t.Errorf("message = %q", result.Message)
	}
}

// A probe exceeding the check timeout must come back Critical with a
// "timed out" message, without blocking the caller much past the timeout.
func TestMonitor_ProbeTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.CheckTimeout = 200 * time.Millisecond
	m := NewMonitor(cfg)
	m.RegisterProvider(providertest.New("hung").WithHealthDelay(5 * time.Second))

	start := time.Now()
	result := m.CheckProvider(context.Background(), "hung")
	elapsed := time.Since(start)

	if result.Status != StatusCritical {
		t.Fatalf("status = %s, want critical", result.Status)
	}
	if !strings.Contains(result.Message, "timed out") {
		t.Errorf("message = %q, want it to mention timed out", result.Message)
	}
	if elapsed > time.Second {
		t.Errorf("caller blocked %s, want ~200ms", elapsed)
	}
}

func TestMonitor_UnhealthyProvider(t *testing.T) {
	m := NewMonitor(testConfig())
	m.RegisterProvider(providertest.New("down").SetHealthy(false))

	result := m.CheckProvider(context.Background(), "down")
	if result.Status != StatusUnhealthy {
		t.Fatalf("status = %s, want unhealthy", result.Status)
	}

	met, _ := m.Metrics("down")
	if met.FailedChecks != 1 || met.ConsecutiveFailures != 1 {
		t.Errorf("failed/consecutive = %d/%d, want 1/1", met.FailedChecks, met.ConsecutiveFailures)
	}
	if met.LastFailedCheck.IsZero() {
		t.Error("last failed check not set")
	}
}

func TestMonitor_UnknownProvider(t *testing.T) {
	m := NewMonitor(testConfig())

	result := m.CheckProvider(context.Background(), "ghost")
	if result.Status != StatusCritical {
		t.Errorf("status = %s, want critical", result.Status)
	}
}

func TestMonitor_CheckAll(t *testing.T) {
	m := NewMonitor(testConfig())
	m.RegisterProvider(providertest.New("a"))
	m.RegisterProvider(providertest.New("b").SetHealthy(false))
	m.RegisterProvider(providertest.New("c"))

	results := m.CheckAll(context.Background())
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if results["a"].Status != StatusHealthy {
		t.Errorf("a = %s, want healthy", results["a"].Status)
	}
	if results["b"].Status != StatusUnhealthy {
		t.Errorf("b = %s, want unhealthy", results["b"].Status)
	}
	if results["c"].Status != StatusHealthy {
		t.Errorf("c = %s, want healthy", results["c"].Status)
	}
}

// One hung provider must not block the others' results beyond its own
// timeout.
func TestMonitor_CheckAllConcurrent(t *testing.T) {
	cfg := testConfig()
	cfg.CheckTimeout = 300 * time.Millisecond
	m := NewMonitor(cfg)
	m.RegisterProvider(providertest.New("hung").WithHealthDelay(5 * time.Second))
	m.RegisterProvider(providertest.New("fast"))

	start := time.Now()
	results := m.CheckAll(context.Background())
	elapsed := time.Since(start)

	if results["fast"].Status != StatusHealthy {
		t.Errorf("fast = %s", results["fast"].Status)
	}
	if results["hung"].Status != StatusCritical {
		t.Errorf("hung = %s", results["hung"].Status)
	}
	if elapsed > 2*time.Second {
		t.Errorf("fan-out took %s, want ~300ms", elapsed)
	}
}

func TestMonitor_ConsecutiveFailureAlert(t *testing.T) {
	m := NewMonitor(testConfig())
	p := providertest.New("flaky").SetHealthy(false)
	m.RegisterProvider(p)

	var opened []Alert
	m.OnAlert(func(a Alert) { opened = append(opened, a) })

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.CheckProvider(ctx, "flaky")
	}

	if len(opened) != 1 {
		t.Fatalf("alerts opened = %d, want 1", len(opened))
	}
	if opened[0].Key != AlertConsecutiveFailures || opened[0].Severity != SeverityError {
		t.Errorf("alert = %+v", opened[0])
	}
	if opened[0].ID == "" {
		t.Error("alert ID not set")
	}

	// Further failures are suppressed while the alert is open.
	m.CheckProvider(ctx, "flaky")
	if len(opened) != 1 {
		t.Errorf("duplicate alert opened")
	}
	if got := len(m.ActiveAlerts()); got != 1 {
		t.Errorf("active alerts = %d, want 1", got)
	}

	// Recovery resolves it, and a new streak opens a fresh alert.
	p.SetHealthy(true)
	m.CheckProvider(ctx, "flaky")
	if got := len(m.ActiveAlerts()); got != 0 {
		t.Errorf("active alerts after recovery = %d, want 0", got)
	}

	p.SetHealthy(false)
	for i := 0; i < 3; i++ {
		m.CheckProvider(ctx, "flaky")
	}
	if len(opened) != 2 {
		t.Errorf("alerts after second streak = %d, want 2", len(opened))
	}
}

func TestMonitor_SlowResponseAlert(t *testing.T) {
	m := NewMonitor(testConfig()) // threshold 100ms, 2x = 200ms
	p := providertest.New("slow").WithHealthDelay(250 * time.Millisecond)
	m.RegisterProvider(p)

	ctx := context.Background()
	m.CheckProvider(ctx, "slow")

	alerts := m.ActiveAlerts()
	if len(alerts) != 1 || alerts[0].Key != AlertSlowResponse {
		t.Fatalf("active alerts = %+v, want one slow_response", alerts)
	}
	if alerts[0].Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning", alerts[0].Severity)
	}

	// A degraded-but-not-fast check does not resolve it.
	p.WithHealthDelay(150 * time.Millisecond)
	m.CheckProvider(ctx, "slow")
	if got := len(m.ActiveAlerts()); got != 1 {
		t.Errorf("active alerts after slow check = %d, want 1", got)
	}

	// A healthy, fast check resolves it.
	p.WithHealthDelay(0)
	m.CheckProvider(ctx, "slow")
	if got := len(m.ActiveAlerts()); got != 0 {
		t.Errorf("active alerts after fast check = %d, want 0", got)
	}
}

func TestMonitor_AlertCallbackPanicRecovered(t *testing.T) {
	m := NewMonitor(testConfig())
	m.RegisterProvider(providertest.New("down").SetHealthy(false))

	m.OnAlert(func(Alert) { panic("broken notifier") })
	invoked := 0
	m.OnAlert(func(Alert) { invoked++ })

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.CheckProvider(ctx, "down")
	}
	if invoked != 1 {
		t.Errorf("second callback invocations = %d, want 1", invoked)
	}
}

func TestMonitor_HistoryBounded(t *testing.T) {
	m := NewMonitor(testConfig()) // MaxHistorySize 5
	m.RegisterProvider(providertest.New("p1"))

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		m.CheckProvider(ctx, "p1")
	}

	hist := m.History("p1")
	if len(hist) != 5 {
		t.Errorf("history length = %d, want 5", len(hist))
	}

	met, _ := m.Metrics("p1")
	if met.TotalChecks != 8 {
		t.Errorf("total checks = %d, want 8 (metrics are not history-derived)", met.TotalChecks)
	}
}

func TestMonitor_UptimeMixed(t *testing.T) {
	m := NewMonitor(testConfig())
	p := providertest.New("p1")
	m.RegisterProvider(p)

	ctx := context.Background()
	m.CheckProvider(ctx, "p1")
	m.CheckProvider(ctx, "p1")
	m.CheckProvider(ctx, "p1")
	p.SetHealthy(false)
	m.CheckProvider(ctx, "p1")

	met, _ := m.Metrics("p1")
	if met.UptimePercentage != 75 {
		t.Errorf("uptime = %v, want 75", met.UptimePercentage)
	}
	if met.ConsecutiveFailures != 1 {
		t.Errorf("consecutive failures = %d, want 1", met.ConsecutiveFailures)
	}
}

func TestMonitor_ResolveAlertManually(t *testing.T) {
	m := NewMonitor(testConfig())
	m.RegisterProvider(providertest.New("down").SetHealthy(false))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		m.CheckProvider(ctx, "down")
	}

	alerts := m.ActiveAlerts()
	if len(alerts) != 1 {
		t.Fatalf("active alerts = %d, want 1", len(alerts))
	}

	if !m.ResolveAlert(alerts[0].ID) {
		t.Fatal("resolve failed")
	}
	if m.ResolveAlert(alerts[0].ID) {
		t.Error("resolving twice should report false")
	}
	if got := len(m.ActiveAlerts()); got != 0 {
		t.Errorf("active alerts after resolve = %d, want 0", got)
	}
}

func TestMonitor_BackgroundLoop(t *testing.T) {
	m := NewMonitor(testConfig()) // 50ms interval
	m.RegisterProvider(providertest.New("p1"))

	m.Start(context.Background())
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if met, ok := m.Metrics("p1"); ok && met.TotalChecks >= 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("background loop did not run checks")
}

func TestMonitor_StopIsClean(t *testing.T) {
	m := NewMonitor(testConfig())
	m.RegisterProvider(providertest.New("p1"))

	m.Start(context.Background())
	m.Stop()

	// Stopping again is safe.
	m.Stop()
}
