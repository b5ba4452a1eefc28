package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner enforces the ledger's retention window on a cron schedule.
type Pruner struct {
	store         *Store
	retentionDays int
	schedule      string

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	logger  *slog.Logger
}

// NewPruner creates a pruner that deletes entries older than
// retentionDays, running per the cron schedule (e.g. "0 3 * * *" for
// daily at 3 AM).
func NewPruner(store *Store, retentionDays int, schedule string) *Pruner {
	return &Pruner{
		store:         store,
		retentionDays: retentionDays,
		schedule:      schedule,
		cron:          cron.New(),
		logger:        slog.Default().With("component", "costs.ledger.pruner"),
	}
}

// Start begins scheduled pruning. It is a no-op when the schedule is
// empty or retention is disabled.
func (p *Pruner) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.schedule == "" || p.retentionDays <= 0 {
		p.logger.Info("ledger pruning not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.schedule, err)
	}

	if _, err := p.cron.AddFunc(p.schedule, p.runOnce); err != nil {
		return fmt.Errorf("scheduling ledger pruning: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("ledger pruner started",
		"schedule", p.schedule,
		"retention_days", p.retentionDays,
	)
	return nil
}

// runOnce executes one pruning cycle.
func (p *Pruner) runOnce() {
	cutoff := time.Now().AddDate(0, 0, -p.retentionDays)

	deleted, err := p.store.PruneBefore(cutoff)
	if err != nil {
		p.logger.Error("scheduled ledger pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		p.logger.Info("scheduled ledger pruning completed", "deleted", deleted)
	} else {
		p.logger.Debug("scheduled ledger pruning completed, nothing to delete")
	}
}

// Stop stops the scheduler and waits for a running job to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("ledger pruner stopped")
	}
}
