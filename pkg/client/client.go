package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"helmsman-ai/relay/pkg/config"
	"helmsman-ai/relay/pkg/costs"
	"helmsman-ai/relay/pkg/costs/ledger"
	"helmsman-ai/relay/pkg/fallback"
	"helmsman-ai/relay/pkg/health"
	"helmsman-ai/relay/pkg/providers"
	"helmsman-ai/relay/pkg/telemetry/metrics"
	"helmsman-ai/relay/pkg/telemetry/tracing"
)

// Client wires the relay's subsystems together behind one API.
// It is safe for concurrent use.
type Client struct {
	cfg *config.Config

	manager *fallback.Manager
	costs   *costs.Monitor
	health  *health.Monitor
	metrics *metrics.Collector
	tracer  *tracing.Tracer

	store  *ledger.Store
	pruner *ledger.Pruner

	logger *slog.Logger
}

// New constructs a client from the configuration. Providers must be
// registered separately; Start launches the background loops.
func New(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("nil configuration")
	}

	c := &Client{
		cfg:    cfg,
		logger: slog.Default().With("component", "client"),
	}

	if cfg.Metrics.Enabled {
		c.metrics = metrics.NewCollector(cfg.Metrics)
	}

	tracer, err := tracing.New(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	c.tracer = tracer

	costOpts := []costs.Option{}
	if cfg.Ledger.Enabled {
		store, err := ledger.Open(ledger.Config{Path: cfg.Ledger.Path})
		if err != nil {
			return nil, fmt.Errorf("opening cost ledger: %w", err)
		}
		c.store = store
		costOpts = append(costOpts, costs.WithArchiver(store))

		if cfg.Ledger.PruneSchedule != "" {
			c.pruner = ledger.NewPruner(store, cfg.Ledger.RetentionDays, cfg.Ledger.PruneSchedule)
		}
	}
	c.costs = costs.NewMonitor(costs.Config{
		DailyLimit:        cfg.Budget.DailyLimit,
		WeeklyLimit:       cfg.Budget.WeeklyLimit,
		MonthlyLimit:      cfg.Budget.MonthlyLimit,
		WarningThreshold:  cfg.Budget.WarningThreshold,
		CriticalThreshold: cfg.Budget.CriticalThreshold,
		RetentionDays:     cfg.Budget.RetentionDays,
	}, costOpts...)

	c.health = health.NewMonitor(health.Config{
		CheckInterval:         cfg.Health.CheckInterval,
		CheckTimeout:          cfg.Health.CheckTimeout,
		ResponseTimeThreshold: cfg.Health.ResponseTimeThreshold,
		FailureThreshold:      cfg.Health.FailureThreshold,
		MaxHistorySize:        cfg.Health.MaxHistorySize,
	})

	c.manager = fallback.NewManager(cfg.Routing,
		fallback.WithCostMonitor(c.costs),
		fallback.WithMetrics(c.metrics),
		fallback.WithTracer(c.tracer),
	)

	// Keep the budget gauges current from alert evaluations.
	c.costs.OnAlert(func(period costs.Period, status costs.BudgetStatus) {
		c.metrics.SetBudgetUsage(period.String(), status.UsagePercentage)
	})

	return c, nil
}

// RegisterProvider adds a provider under its configured policy.
// The provider's name must match a configured provider.
func (c *Client) RegisterProvider(p providers.Provider) error {
	pc := c.cfg.ProviderByName(p.Name())
	if pc == nil {
		return fmt.Errorf("provider %q is not configured", p.Name())
	}

	c.manager.Register(p, *pc)
	c.health.RegisterProvider(p)
	c.logger.Info("provider registered",
		"provider", pc.Name,
		"priority", pc.Priority,
		"enabled", pc.Enabled)
	return nil
}

// Start launches the health-check loop, the pause-recovery loop, and the
// scheduled ledger pruner. Canceling ctx (or calling Close) stops them.
func (c *Client) Start(ctx context.Context) error {
	c.health.Start(ctx)
	c.manager.Start(ctx)
	if c.pruner != nil {
		if err := c.pruner.Start(); err != nil {
			return fmt.Errorf("starting ledger pruner: %w", err)
		}
	}
	return nil
}

// GenerateResponse routes one request through the fallback walk.
// A non-empty preferredProvider is tried first when it is registered and
// enabled.
func (c *Client) GenerateResponse(ctx context.Context, req *providers.Request, preferredProvider string) (*providers.Response, error) {
	resp, err := c.manager.GenerateWithProvider(ctx, req, preferredProvider)
	if err != nil {
		return nil, err
	}

	for _, period := range costs.Periods {
		status := c.costs.BudgetStatus(period)
		if status.Limit > 0 {
			c.metrics.SetBudgetUsage(period.String(), status.UsagePercentage)
		}
	}
	return resp, nil
}

// BatchGenerate routes many independent requests with bounded
// concurrency. One request's failure never aborts the rest.
func (c *Client) BatchGenerate(ctx context.Context, reqs []*providers.Request) []fallback.BatchResult {
	return c.manager.BatchGenerate(ctx, reqs)
}

// CheckHealth probes every registered provider once and returns the
// results by provider name.
func (c *Client) CheckHealth(ctx context.Context) map[string]health.CheckResult {
	results := c.health.CheckAll(ctx)
	for name, result := range results {
		c.metrics.SetProviderHealth(name, result.Status == health.StatusHealthy || result.Status == health.StatusDegraded)
	}
	return results
}

// GetProviderStats returns every provider's runtime state.
func (c *Client) GetProviderStats() map[string]fallback.ProviderStats {
	return c.manager.Stats()
}

// IsPipelinePaused reports whether the pipeline pause flag is set.
func (c *Client) IsPipelinePaused() bool {
	return c.manager.IsPaused()
}

// ResumePipeline manually clears the pause flag, reporting whether the
// pipeline was actually paused.
func (c *Client) ResumePipeline() bool {
	return c.manager.ResumePipeline()
}

// BudgetStatus evaluates the period's spend against its configured
// limit.
func (c *Client) BudgetStatus(period costs.Period) costs.BudgetStatus {
	return c.costs.BudgetStatus(period)
}

// CurrentCosts aggregates the period's recorded spend, optionally
// filtered to one provider (empty means all).
func (c *Client) CurrentCosts(period costs.Period, provider string) costs.Stats {
	return c.costs.CurrentCosts(period, provider)
}

// ResetCostTracking drops recorded cost entries for the provider, or
// every entry when provider is empty.
func (c *Client) ResetCostTracking(provider string) {
	c.costs.ResetTracking(provider)
}

// ExportCostData serializes every recorded cost entry in the requested
// format.
func (c *Client) ExportCostData(format costs.Format) ([]byte, error) {
	return c.costs.Export(format)
}

// OnCostAlert registers a callback invoked when a budget threshold is
// crossed. Callback panics are swallowed and logged.
func (c *Client) OnCostAlert(fn costs.AlertFunc) {
	c.costs.OnAlert(fn)
}

// OnHealthAlert registers a callback invoked when a health alert opens
// or resolves. Callback panics are swallowed and logged.
func (c *Client) OnHealthAlert(fn health.AlertFunc) {
	c.health.OnAlert(fn)
}

// DashboardData is a point-in-time aggregate for dashboards.
type DashboardData struct {
	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time `json:"generated_at"`

	// PipelinePaused reports the pause flag.
	PipelinePaused bool `json:"pipeline_paused"`

	// Budgets holds every period's budget status.
	Budgets map[string]costs.BudgetStatus `json:"budgets"`

	// Providers holds every provider's runtime state.
	Providers map[string]fallback.ProviderStats `json:"providers"`

	// Health holds every provider's health aggregate.
	Health map[string]health.Metrics `json:"health"`

	// ActiveAlerts lists unresolved health alerts.
	ActiveAlerts []health.Alert `json:"active_alerts"`
}

// Dashboard assembles the current budget, provider, and health state.
func (c *Client) Dashboard() DashboardData {
	budgets := make(map[string]costs.BudgetStatus, len(costs.Periods))
	for _, period := range costs.Periods {
		budgets[period.String()] = c.costs.BudgetStatus(period)
	}

	return DashboardData{
		GeneratedAt:    time.Now(),
		PipelinePaused: c.manager.IsPaused(),
		Budgets:        budgets,
		Providers:      c.manager.Stats(),
		Health:         c.health.AllMetrics(),
		ActiveAlerts:   c.health.ActiveAlerts(),
	}
}

// ApplyRuntimeConfig applies the hot-reloadable subset of a freshly
// loaded configuration: budget limits and the routing strategy.
// Everything else keeps its construction-time value until restart.
func (c *Client) ApplyRuntimeConfig(cfg *config.Config) {
	c.costs.SetLimits(cfg.Budget.DailyLimit, cfg.Budget.WeeklyLimit, cfg.Budget.MonthlyLimit)
	c.manager.SetStrategy(cfg.Routing.Strategy)
	c.logger.Info("runtime configuration applied",
		"strategy", cfg.Routing.Strategy,
		"daily_limit", cfg.Budget.DailyLimit)
}

// Metrics returns the Prometheus collector, nil when metrics are
// disabled.
func (c *Client) Metrics() *metrics.Collector {
	return c.metrics
}

// Close stops the background loops, flushes tracing, and closes the
// ledger. The client must not be used afterwards.
func (c *Client) Close(ctx context.Context) error {
	c.health.Stop()
	c.manager.Stop()
	if c.pruner != nil {
		c.pruner.Stop()
	}

	var errs []error
	if err := c.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing ledger: %w", err))
		}
	}
	return errors.Join(errs...)
}
