package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"helmsman-ai/relay/pkg/config"
)

func TestCollector_Record(t *testing.T) {
	c := NewCollector(config.MetricsConfig{Namespace: "relay"})

	c.RecordRequest("openai", "gpt-4", "success", 250*time.Millisecond)
	c.RecordRequest("openai", "gpt-4", "success", 100*time.Millisecond)
	c.RecordError("openai", "rate_limited")
	c.RecordUsage("openai", "gpt-4", 300, 200, 0.05)
	c.SetProviderHealth("openai", true)
	c.SetCircuitState("openai", 2)
	c.SetBudgetUsage("daily", 85)
	c.SetPipelinePaused(true)
	c.RecordFallbackDepth(2)

	if got := testutil.ToFloat64(c.requests.WithLabelValues("openai", "gpt-4", "success")); got != 2 {
		t.Errorf("requests_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.providerErrors.WithLabelValues("openai", "rate_limited")); got != 1 {
		t.Errorf("provider_errors_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.tokensTotal.WithLabelValues("openai", "prompt")); got != 300 {
		t.Errorf("tokens_total{prompt} = %v, want 300", got)
	}
	if got := testutil.ToFloat64(c.costTotal.WithLabelValues("openai", "gpt-4")); got != 0.05 {
		t.Errorf("cost_usd_total = %v, want 0.05", got)
	}
	if got := testutil.ToFloat64(c.providerHealth.WithLabelValues("openai")); got != 1 {
		t.Errorf("provider_health = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.circuitState.WithLabelValues("openai")); got != 2 {
		t.Errorf("circuit_state = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.budgetUsage.WithLabelValues("daily")); got != 85 {
		t.Errorf("budget_usage_percent = %v, want 85", got)
	}
	if got := testutil.ToFloat64(c.pipelinePaused); got != 1 {
		t.Errorf("pipeline_paused = %v, want 1", got)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	// All recording methods must be no-ops on a nil collector.
	c.RecordRequest("p", "m", "success", time.Second)
	c.RecordError("p", "timeout")
	c.RecordUsage("p", "m", 1, 1, 0.01)
	c.RecordFallbackDepth(1)
	c.SetProviderHealth("p", false)
	c.SetCircuitState("p", 0)
	c.SetBudgetUsage("daily", 1)
	c.SetPipelinePaused(false)
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector(config.MetricsConfig{})
	b := NewCollector(config.MetricsConfig{})

	a.RecordError("p", "timeout")
	if got := testutil.ToFloat64(b.providerErrors.WithLabelValues("p", "timeout")); got != 0 {
		t.Errorf("registries are shared: %v", got)
	}
}
