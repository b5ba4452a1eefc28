// Package providertest provides a scriptable in-memory Provider
// implementation for tests across the relay packages.
package providertest

import (
	"context"
	"sync"
	"time"

	"helmsman-ai/relay/pkg/providers"
)

// MockProvider is a scriptable implementation of providers.Provider.
//
// Behavior is configured through the exported setters: a fixed error, a
// sequence of per-call errors, artificial latency for Generate and
// CheckHealth, and a fixed cost estimate. All methods are safe for
// concurrent use and the mock counts every call.
type MockProvider struct {
	mu sync.Mutex

	name   string
	models []string

	// generateErr is returned by every Generate call when set.
	generateErr error

	// errSequence is consumed one error per Generate call before
	// generateErr is consulted; a nil entry means success.
	errSequence []error

	// content is the response body for successful Generate calls.
	content string

	// tokens is the reported token usage for successful calls.
	tokens providers.TokenUsage

	// costEstimate overrides the estimate heuristic when >= 0.
	costEstimate float64

	// generateDelay and healthDelay simulate slow backends.
	generateDelay time.Duration
	healthDelay   time.Duration

	// healthy controls CheckHealth results.
	healthy bool

	generateCalls int
	healthCalls   int

	lastHealth providers.HealthSnapshot
}

// New creates a healthy mock provider with the given name.
func New(name string) *MockProvider {
	return &MockProvider{
		name:         name,
		models:       []string{"mock-model"},
		content:      "mock response",
		tokens:       providers.TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		costEstimate: -1,
		healthy:      true,
		lastHealth: providers.HealthSnapshot{
			Provider:  name,
			IsHealthy: true,
			CheckedAt: time.Now(),
		},
	}
}

// FailWith makes every Generate call return err.
func (m *MockProvider) FailWith(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateErr = err
	return m
}

// FailSequence scripts per-call Generate outcomes; a nil entry succeeds.
// After the sequence is consumed the fixed error (if any) applies.
func (m *MockProvider) FailSequence(errs ...error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errSequence = append(m.errSequence[:0], errs...)
	return m
}

// RespondWith sets the content returned by successful Generate calls.
func (m *MockProvider) RespondWith(content string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = content
	return m
}

// WithUsage sets the token usage reported on success.
func (m *MockProvider) WithUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = providers.TokenUsage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
	return m
}

// WithCostEstimate fixes the value returned by EstimateCost.
func (m *MockProvider) WithCostEstimate(cost float64) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.costEstimate = cost
	return m
}

// WithGenerateDelay makes Generate take at least d.
func (m *MockProvider) WithGenerateDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateDelay = d
	return m
}

// WithHealthDelay makes CheckHealth take at least d.
func (m *MockProvider) WithHealthDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthDelay = d
	return m
}

// SetHealthy controls CheckHealth results.
func (m *MockProvider) SetHealthy(healthy bool) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
	return m
}

// WithModels sets the supported model list.
func (m *MockProvider) WithModels(models ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = append(m.models[:0], models...)
	return m
}

// GenerateCalls returns how many times Generate has been called.
func (m *MockProvider) GenerateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls
}

// HealthCalls returns how many times CheckHealth has been called.
func (m *MockProvider) HealthCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthCalls
}

// Name implements providers.Provider.
func (m *MockProvider) Name() string {
	return m.name
}

// SupportedModels implements providers.Provider.
func (m *MockProvider) SupportedModels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.models))
	copy(out, m.models)
	return out
}

// Generate implements providers.Provider.
func (m *MockProvider) Generate(ctx context.Context, req *providers.Request) (*providers.Response, error) {
	m.mu.Lock()
	m.generateCalls++
	var err error
	if len(m.errSequence) > 0 {
		err = m.errSequence[0]
		m.errSequence = m.errSequence[1:]
	} else {
		err = m.generateErr
	}
	delay := m.generateDelay
	content := m.content
	tokens := m.tokens
	m.mu.Unlock()

	start := time.Now()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	if err != nil {
		classified := providers.Classify(err, m.name)
		m.recordHealth(false, classified.Error())
		return nil, classified
	}

	m.recordHealth(true, "")

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	return &providers.Response{
		Content:  content,
		Provider: m.name,
		Model:    model,
		Usage:    tokens,
		Latency:  time.Since(start),
	}, nil
}

// CheckHealth implements providers.Provider.
func (m *MockProvider) CheckHealth(ctx context.Context) providers.HealthSnapshot {
	m.mu.Lock()
	m.healthCalls++
	delay := m.healthDelay
	healthy := m.healthy
	m.mu.Unlock()

	start := time.Now()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}

	snap := providers.HealthSnapshot{
		Provider:  m.name,
		IsHealthy: healthy,
		Latency:   time.Since(start),
		CheckedAt: time.Now(),
	}
	if !healthy {
		snap.Message = "mock provider unhealthy"
	}

	m.mu.Lock()
	m.lastHealth = snap
	m.mu.Unlock()

	return snap
}

// EstimateCost implements providers.Provider.
func (m *MockProvider) EstimateCost(req *providers.Request) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.costEstimate >= 0 {
		return m.costEstimate
	}
	return providers.EstimateCostUSD(req, 0.002)
}

// LastHealth implements providers.Provider.
func (m *MockProvider) LastHealth() providers.HealthSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHealth
}

// recordHealth updates the cached snapshot from traffic.
func (m *MockProvider) recordHealth(healthy bool, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastHealth = providers.HealthSnapshot{
		Provider:  m.name,
		IsHealthy: healthy,
		CheckedAt: time.Now(),
		Message:   msg,
	}
}
