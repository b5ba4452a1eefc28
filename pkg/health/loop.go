package health

import (
	"context"
	"time"
)

// Start launches the background check loop. Each iteration probes every
// provider, then prunes stale resolved alerts. A failing iteration is
// logged and the loop continues; Stop (or canceling ctx) ends it.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	go m.run(ctx, done)
	m.logger.Info("health monitor started", "interval", m.config.CheckInterval)
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := m.config.CheckInterval
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
			m.iterate(ctx)
		}
	}
}

// iterate runs one loop cycle, recovering panics so a single bad
// iteration never kills the loop.
func (m *Monitor) iterate(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("health check iteration panicked", "panic", r)
		}
	}()

	m.CheckAll(ctx)
	m.pruneResolvedAlerts()
}

// Stop cancels the background loop and waits for the in-flight iteration
// to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	m.logger.Info("health monitor stopped")
}
