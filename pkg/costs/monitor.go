package costs

import (
	"log/slog"
	"sync"
	"time"
)

// pruneInterval throttles retention scans inside Record.
const pruneInterval = time.Hour

// Config contains the monitor's budget limits and thresholds.
type Config struct {
	// DailyLimit is the daily budget in USD. 0 means unlimited.
	DailyLimit float64

	// WeeklyLimit is the weekly budget in USD. 0 means unlimited.
	WeeklyLimit float64

	// MonthlyLimit is the monthly budget in USD. 0 means unlimited.
	MonthlyLimit float64

	// WarningThreshold is the usage fraction (0.0-1.0) that triggers a
	// Warning alert.
	WarningThreshold float64

	// CriticalThreshold is the usage fraction (0.0-1.0) that triggers a
	// Critical alert.
	CriticalThreshold float64

	// RetentionDays is how long entries are kept before pruning.
	RetentionDays int
}

// Monitor records per-request spend and evaluates it against budgets.
type Monitor struct {
	mu sync.Mutex

	config  Config
	entries []Entry

	callbacks []AlertFunc

	// lastLevel holds each period's most recently alerted level so a
	// level crossing fires exactly once until the level drops.
	lastLevel map[Period]AlertLevel

	lastPrune time.Time
	archive   Archiver
	logger    *slog.Logger

	// now is a test seam, defaults to time.Now.
	now func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithArchiver installs a write-behind archive that receives every
// recorded entry.
func WithArchiver(a Archiver) Option {
	return func(m *Monitor) { m.archive = a }
}

// WithLogger overrides the monitor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// NewMonitor creates a cost monitor with the given budget configuration.
func NewMonitor(config Config, opts ...Option) *Monitor {
	m := &Monitor{
		config:    config,
		lastLevel: make(map[Period]AlertLevel),
		logger:    slog.Default().With("component", "costs"),
		now:       time.Now,
	}
	m.lastPrune = m.now()

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnAlert registers a budget alert callback.
func (m *Monitor) OnAlert(fn AlertFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Record appends a cost entry, evaluates budget levels for every period,
// dispatches alerts for level crossings, and opportunistically prunes
// entries past the retention window.
//
// The append and the budget evaluation happen atomically with respect to
// concurrent readers.
func (m *Monitor) Record(provider string, cost float64, tokensUsed int, model string, promptTokens, completionTokens int, metadata map[string]string) {
	entry := Entry{
		Provider:         provider,
		Timestamp:        m.now(),
		Cost:             cost,
		TokensUsed:       tokensUsed,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		Model:            model,
		Metadata:         metadata,
	}

	m.mu.Lock()
	m.entries = append(m.entries, entry)

	var alerts []alertDispatch
	for _, period := range Periods {
		status := m.budgetStatusLocked(period)
		last := m.lastLevel[period]

		switch {
		case status.AlertLevel > last:
			m.lastLevel[period] = status.AlertLevel
			if status.AlertLevel >= LevelWarning {
				alerts = append(alerts, alertDispatch{period, status})
			}
		case status.AlertLevel < last:
			// Level dropped (period rollover or reset): re-arm.
			m.lastLevel[period] = status.AlertLevel
		}
	}

	m.pruneLocked()
	callbacks := make([]AlertFunc, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	if m.archive != nil {
		if err := m.archive.Append(entry); err != nil {
			m.logger.Warn("cost archive append failed",
				"provider", provider, "error", err)
		}
	}

	for _, a := range alerts {
		for _, fn := range callbacks {
			m.dispatch(fn, a.period, a.status)
		}
	}
}

type alertDispatch struct {
	period Period
	status BudgetStatus
}

// dispatch invokes one callback, recovering any panic.
func (m *Monitor) dispatch(fn AlertFunc, period Period, status BudgetStatus) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("budget alert callback panicked",
				"period", period.String(), "panic", r)
		}
	}()
	fn(period, status)
}

// CurrentCosts aggregates the entries falling in the period's
// start-to-now window. An empty providerFilter aggregates all providers.
func (m *Monitor) CurrentCosts(period Period, providerFilter string) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentCostsLocked(period, providerFilter)
}

func (m *Monitor) currentCostsLocked(period Period, providerFilter string) Stats {
	start := periodStart(period, m.now())

	stats := Stats{
		Period:      period,
		PeriodStart: start,
		ByProvider:  make(map[string]float64),
		ByModel:     make(map[string]float64),
	}

	for _, e := range m.entries {
		if e.Timestamp.Before(start) {
			continue
		}
		if providerFilter != "" && e.Provider != providerFilter {
			continue
		}

		stats.TotalCost += e.Cost
		stats.RequestCount++
		stats.TotalTokens += e.TokensUsed
		stats.ByProvider[e.Provider] += e.Cost
		stats.ByModel[e.Model] += e.Cost
	}

	if stats.RequestCount > 0 {
		stats.AvgCostPerRequest = stats.TotalCost / float64(stats.RequestCount)
	}
	if stats.TotalTokens > 0 {
		stats.AvgCostPerToken = stats.TotalCost / float64(stats.TotalTokens)
	}
	return stats
}

// BudgetStatus evaluates a period's spend against its configured limit.
func (m *Monitor) BudgetStatus(period Period) BudgetStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.budgetStatusLocked(period)
}

func (m *Monitor) budgetStatusLocked(period Period) BudgetStatus {
	limit := m.limitFor(period)
	current := m.currentCostsLocked(period, "").TotalCost

	status := BudgetStatus{
		Period:      period,
		Limit:       limit,
		CurrentCost: current,
		AlertLevel:  LevelInfo,
	}

	if limit <= 0 {
		return status
	}

	status.RemainingBudget = limit - current
	if status.RemainingBudget < 0 {
		status.RemainingBudget = 0
	}
	status.UsagePercentage = current / limit * 100

	warning := m.config.WarningThreshold
	if warning <= 0 {
		warning = 0.80
	}
	critical := m.config.CriticalThreshold
	if critical <= 0 {
		critical = 0.95
	}

	// Emergency is a distinct, stronger signal than critical and always
	// wins once the limit is reached.
	switch {
	case current >= limit:
		status.AlertLevel = LevelEmergency
		status.ShouldPause = true
	case current >= limit*critical:
		status.AlertLevel = LevelCritical
	case current >= limit*warning:
		status.AlertLevel = LevelWarning
	}
	return status
}

func (m *Monitor) limitFor(period Period) float64 {
	switch period {
	case PeriodWeekly:
		return m.config.WeeklyLimit
	case PeriodMonthly:
		return m.config.MonthlyLimit
	default:
		return m.config.DailyLimit
	}
}

// SetLimits replaces the budget limits at runtime (config hot reload).
// Alert levels re-arm against the new limits, so a limit raise can fire
// fresh alerts as spend approaches it again.
func (m *Monitor) SetLimits(daily, weekly, monthly float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config.DailyLimit = daily
	m.config.WeeklyLimit = weekly
	m.config.MonthlyLimit = monthly

	for _, period := range Periods {
		m.lastLevel[period] = m.budgetStatusLocked(period).AlertLevel
	}
}

// IsBudgetExceeded reports whether a period's spend reached its limit.
func (m *Monitor) IsBudgetExceeded(period Period) bool {
	return m.BudgetStatus(period).ShouldPause
}

// CheapestProvider picks, among the candidates with at least one recorded
// request in the period, the one with the lowest average cost per request.
// Returns "" when no candidate has any usage data yet.
func (m *Monitor) CheapestProvider(candidates []string, period Period) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := ""
	bestAvg := 0.0
	for _, name := range candidates {
		stats := m.currentCostsLocked(period, name)
		if stats.RequestCount == 0 {
			continue
		}

		avg := stats.AvgCostPerRequest
		if best == "" || avg < bestAvg {
			best = name
			bestAvg = avg
		}
	}
	return best
}

// AvgCostPerRequest returns a provider's realized average cost per request
// in the period, and whether any usage exists to average over.
func (m *Monitor) AvgCostPerRequest(provider string, period Period) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.currentCostsLocked(period, provider)
	if stats.RequestCount == 0 {
		return 0, false
	}
	return stats.AvgCostPerRequest, true
}

// ResetTracking removes recorded entries. An empty provider resets
// everything; otherwise only that provider's entries are dropped.
// Resetting twice is the same as resetting once.
func (m *Monitor) ResetTracking(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if provider == "" {
		m.entries = m.entries[:0]
	} else {
		kept := m.entries[:0]
		for _, e := range m.entries {
			if e.Provider != provider {
				kept = append(kept, e)
			}
		}
		m.entries = kept
	}

	// Alert levels re-arm against the reduced spend.
	for _, period := range Periods {
		m.lastLevel[period] = m.budgetStatusLocked(period).AlertLevel
	}
}

// Entries returns a copy of all recorded entries in append order.
func (m *Monitor) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// pruneLocked drops entries past the retention window, at most once per
// pruneInterval. Caller must hold the lock.
func (m *Monitor) pruneLocked() {
	if m.config.RetentionDays <= 0 {
		return
	}

	now := m.now()
	if now.Sub(m.lastPrune) < pruneInterval {
		return
	}
	m.lastPrune = now

	cutoff := now.AddDate(0, 0, -m.config.RetentionDays)
	kept := m.entries[:0]
	for _, e := range m.entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	m.entries = kept
}
