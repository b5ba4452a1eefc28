package fallback

import (
	"context"
	"time"
)

// recoveryProbeTimeout bounds a single provider probe in the recovery
// loop, independent of the provider's generation timeout.
const recoveryProbeTimeout = 10 * time.Second

// Start launches the pause-recovery loop. While the pipeline is paused,
// each tick re-probes the registered providers and resumes the pipeline
// as soon as any of them answers healthy. The loop is a no-op unless
// pipeline pausing is enabled; Stop (or canceling ctx) ends it.
func (m *Manager) Start(ctx context.Context) {
	if !m.routing.EnablePipelinePause {
		return
	}

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.runRecovery(ctx)
	m.logger.Info("recovery loop started", "interval", m.routing.RecoveryInterval)
}

func (m *Manager) runRecovery(ctx context.Context) {
	defer close(m.done)

	interval := m.routing.RecoveryInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tryRecover(ctx)
		}
	}
}

// tryRecover runs one recovery cycle, recovering panics so a single bad
// probe never kills the loop.
func (m *Manager) tryRecover(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("recovery iteration panicked", "panic", r)
		}
	}()

	if !m.paused.Load() {
		return
	}

	m.mu.Lock()
	regs := make([]*registered, 0, len(m.providers))
	for _, reg := range m.providers {
		if reg.policy.Enabled {
			regs = append(regs, reg)
		}
	}
	m.mu.Unlock()

	for _, reg := range regs {
		probeCtx, cancel := context.WithTimeout(ctx, recoveryProbeTimeout)
		snap := reg.provider.CheckHealth(probeCtx)
		cancel()

		if snap.IsHealthy {
			if m.paused.CompareAndSwap(true, false) {
				m.logger.Info("provider recovered, resuming pipeline",
					"provider", reg.policy.Name,
					"latency", snap.Latency)
				m.metrics.SetPipelinePaused(false)
			}
			return
		}
	}
}

// Stop cancels the recovery loop and waits for the in-flight cycle to
// finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		m.logger.Info("recovery loop stopped")
	}
}
