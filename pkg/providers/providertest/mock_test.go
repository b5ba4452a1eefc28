package providertest

import (
	"context"
	"testing"
	"time"

	"helmsman-ai/relay/pkg/providers"
)

func TestGenerate_LatencyCoversDelay(t *testing.T) {
	delay := 20 * time.Millisecond
	m := New("p1").RespondWith("ok").WithGenerateDelay(delay)

	before := time.Now()
	resp, err := m.Generate(context.Background(), &providers.Request{Prompt: "hi"})
	elapsed := time.Since(before)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if resp.Latency < delay {
		t.Errorf("Latency = %v, want at least the configured delay %v", resp.Latency, delay)
	}
	if resp.Latency > elapsed {
		t.Errorf("Latency = %v exceeds wall time %v", resp.Latency, elapsed)
	}
}

func TestGenerate_CancelDuringDelay(t *testing.T) {
	m := New("p1").RespondWith("ok").WithGenerateDelay(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Generate(ctx, &providers.Request{Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error after context cancellation")
	}
	perr := providers.Classify(err, "p1")
	if perr.Kind != providers.KindTimeout {
		t.Errorf("kind = %s, want %s", perr.Kind, providers.KindTimeout)
	}
}
