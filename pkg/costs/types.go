package costs

import "time"

// Entry is one immutable cost record.
type Entry struct {
	// Provider is the provider that served the request.
	Provider string `json:"provider"`

	// Timestamp is when the request completed.
	Timestamp time.Time `json:"timestamp"`

	// Cost is the request's cost in USD.
	Cost float64 `json:"cost"`

	// TokensUsed is the total token count (prompt + completion).
	TokensUsed int `json:"tokens_used"`

	// PromptTokens is the prompt-side token count.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the completion-side token count.
	CompletionTokens int `json:"completion_tokens"`

	// Model is the model that served the request.
	Model string `json:"model"`

	// Metadata carries free-form request context.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Period identifies a calendar budget period.
type Period int

const (
	// PeriodDaily covers since local midnight.
	PeriodDaily Period = iota

	// PeriodWeekly covers since the most recent Monday midnight.
	PeriodWeekly

	// PeriodMonthly covers since the first of the current month.
	PeriodMonthly
)

// String returns the period's stable name.
func (p Period) String() string {
	switch p {
	case PeriodDaily:
		return "daily"
	case PeriodWeekly:
		return "weekly"
	case PeriodMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// Periods lists all budget periods in ascending span order.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

// AlertLevel grades how close a period's spend is to its limit.
type AlertLevel int

const (
	// LevelInfo means spend is below every alert threshold.
	LevelInfo AlertLevel = iota

	// LevelWarning means spend reached the warning threshold.
	LevelWarning

	// LevelCritical means spend reached the critical threshold.
	LevelCritical

	// LevelEmergency means spend reached or exceeded the limit.
	LevelEmergency
)

// String returns the level's stable name.
func (l AlertLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "info"
	}
}

// Stats aggregates a period's recorded spend.
type Stats struct {
	// Period is the aggregated period.
	Period Period `json:"period"`

	// PeriodStart is the period's start boundary.
	PeriodStart time.Time `json:"period_start"`

	// TotalCost is the summed cost in USD.
	TotalCost float64 `json:"total_cost"`

	// RequestCount is the number of recorded requests.
	RequestCount int `json:"request_count"`

	// TotalTokens is the summed token count.
	TotalTokens int `json:"total_tokens"`

	// ByProvider breaks total cost down per provider.
	ByProvider map[string]float64 `json:"by_provider"`

	// ByModel breaks total cost down per model.
	ByModel map[string]float64 `json:"by_model"`

	// AvgCostPerRequest is TotalCost / RequestCount, 0 when empty.
	AvgCostPerRequest float64 `json:"avg_cost_per_request"`

	// AvgCostPerToken is TotalCost / TotalTokens, 0 when empty.
	AvgCostPerToken float64 `json:"avg_cost_per_token"`
}

// BudgetStatus is a period's spend measured against its limit.
// It is derived on demand, never stored.
type BudgetStatus struct {
	// Period is the evaluated period.
	Period Period `json:"period"`

	// Limit is the configured budget in USD. 0 means unlimited.
	Limit float64 `json:"limit"`

	// CurrentCost is the period's spend so far in USD.
	CurrentCost float64 `json:"current_cost"`

	// RemainingBudget is Limit - CurrentCost, never negative.
	RemainingBudget float64 `json:"remaining_budget"`

	// UsagePercentage is CurrentCost / Limit * 100.
	UsagePercentage float64 `json:"usage_percentage"`

	// AlertLevel grades the usage.
	AlertLevel AlertLevel `json:"alert_level"`

	// ShouldPause is set once CurrentCost >= Limit.
	ShouldPause bool `json:"should_pause"`
}

// AlertFunc receives budget alerts. Callbacks run synchronously under
// the monitor's dispatch; panics are recovered and logged.
type AlertFunc func(period Period, status BudgetStatus)

// Archiver receives every recorded entry for durable storage.
// The in-memory monitor stays the source of truth for budget math; an
// archiver is a write-behind sink.
type Archiver interface {
	Append(entry Entry) error
}
