package health

import "time"

// Status is the derived outcome of one health check.
type Status int

const (
	// StatusHealthy means the probe succeeded within the response-time
	// threshold.
	StatusHealthy Status = iota

	// StatusDegraded means the probe succeeded but was slow.
	StatusDegraded

	// StatusUnhealthy means the provider reported itself unreachable.
	StatusUnhealthy

	// StatusCritical means the probe timed out or panicked.
	StatusCritical
)

// String returns the status's stable name.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ok reports whether the status counts as a successful check.
func (s Status) ok() bool {
	return s == StatusHealthy || s == StatusDegraded
}

// CheckResult is one immutable health check outcome.
type CheckResult struct {
	// Provider is the checked provider's name.
	Provider string `json:"provider"`

	// Status is the derived health status.
	Status Status `json:"status"`

	// ResponseTime is how long the probe took.
	ResponseTime time.Duration `json:"response_time"`

	// Timestamp is when the check completed.
	Timestamp time.Time `json:"timestamp"`

	// Message explains a non-healthy status.
	Message string `json:"message,omitempty"`
}

// Metrics is a provider's moving health aggregate.
type Metrics struct {
	// TotalChecks counts every completed check.
	TotalChecks int64 `json:"total_checks"`

	// SuccessfulChecks counts healthy and degraded results.
	SuccessfulChecks int64 `json:"successful_checks"`

	// FailedChecks counts unhealthy and critical results.
	FailedChecks int64 `json:"failed_checks"`

	// ConsecutiveFailures is the current failure streak.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// UptimePercentage is SuccessfulChecks / TotalChecks * 100.
	UptimePercentage float64 `json:"uptime_percentage"`

	// AvgResponseTime is the mean of the rolling response-time window.
	AvgResponseTime time.Duration `json:"avg_response_time"`

	// LastSuccessfulCheck is when the provider last passed a check.
	LastSuccessfulCheck time.Time `json:"last_successful_check"`

	// LastFailedCheck is when the provider last failed a check.
	LastFailedCheck time.Time `json:"last_failed_check"`
}

// Severity grades an alert.
type Severity int

const (
	// SeverityWarning flags a degraded but working condition.
	SeverityWarning Severity = iota

	// SeverityError flags a failing condition.
	SeverityError
)

// String returns the severity's stable name.
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Alert condition keys. One alert may be open per (provider, key) pair.
const (
	// AlertConsecutiveFailures opens when a provider's failure streak
	// reaches the configured threshold.
	AlertConsecutiveFailures = "consecutive_failures"

	// AlertSlowResponse opens when a probe takes over twice the
	// response-time threshold.
	AlertSlowResponse = "slow_response"
)

// Alert is an open or resolved health condition.
type Alert struct {
	// ID uniquely identifies this alert instance.
	ID string `json:"id"`

	// Provider is the affected provider.
	Provider string `json:"provider"`

	// Key is the alert condition (consecutive_failures, slow_response).
	Key string `json:"key"`

	// Severity grades the condition.
	Severity Severity `json:"severity"`

	// Message describes the condition.
	Message string `json:"message"`

	// Timestamp is when the alert opened.
	Timestamp time.Time `json:"timestamp"`

	// Resolved is set once the condition cleared.
	Resolved bool `json:"resolved"`

	// ResolvedAt is when the condition cleared.
	ResolvedAt time.Time `json:"resolved_at,omitempty"`
}

// AlertFunc receives newly opened alerts. Callbacks run synchronously;
// panics are recovered and logged.
type AlertFunc func(alert Alert)
