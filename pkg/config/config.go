package config

import "time"

// Config is the root configuration for the relay runtime.
// It is loaded from YAML with environment variable overrides and validated
// before use. See load.go and validate.go.
type Config struct {
	// Providers lists every configured backend, in priority order.
	Providers []ProviderConfig `yaml:"providers"`

	// Routing controls fallback ordering and retry behavior.
	Routing RoutingConfig `yaml:"routing"`

	// Budget controls cost limits and alert thresholds.
	Budget BudgetConfig `yaml:"budget"`

	// Health controls provider health monitoring.
	Health HealthConfig `yaml:"health"`

	// Ledger controls the durable cost ledger (optional).
	Ledger LedgerConfig `yaml:"ledger"`

	// Logging controls structured log output.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics controls Prometheus metrics exposition.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing controls OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`
}

// ProviderConfig describes one backend provider.
// It is immutable after load; one instance exists per configured backend.
type ProviderConfig struct {
	// Name is the provider identifier used for registration and stats.
	Name string `yaml:"name"`

	// Enabled controls whether the provider participates in routing.
	Enabled bool `yaml:"enabled"`

	// Priority is the provider's rank; 1 is the primary provider.
	Priority int `yaml:"priority"`

	// Model is the default model identifier for this provider.
	Model string `yaml:"model"`

	// RateLimitRPM is the requests-per-minute admission limit (0 = no limit).
	RateLimitRPM int `yaml:"rate_limit_rpm"`

	// RateLimitTPM is the tokens-per-minute admission limit (0 = no limit).
	RateLimitTPM int `yaml:"rate_limit_tpm"`

	// CostPer1KTokens is the provider's cost per 1000 tokens in USD.
	// Zero marks a free or self-hosted provider.
	CostPer1KTokens float64 `yaml:"cost_per_1k_tokens"`

	// Timeout bounds every call to this provider.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries against this provider for
	// transient errors before moving to the next provider.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the initial backoff delay between retries.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// RoutingConfig controls how the fallback manager walks providers.
type RoutingConfig struct {
	// Strategy selects the provider try-order. One of:
	// "fail-fast", "retry-primary", "round-robin", "cost-optimized",
	// "smart-fallback".
	Strategy string `yaml:"strategy"`

	// MaxFallbackAttempts caps how many providers a single request may try.
	// Zero means no cap beyond the configured provider count.
	MaxFallbackAttempts int `yaml:"max_fallback_attempts"`

	// CircuitBreakerThreshold is the consecutive-failure count that opens
	// a provider's circuit.
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`

	// CircuitBreakerTimeout is how long an open circuit blocks traffic
	// before a single trial request is allowed through.
	CircuitBreakerTimeout time.Duration `yaml:"circuit_breaker_timeout"`

	// MaxRetryDelay caps the exponential backoff between retries.
	MaxRetryDelay time.Duration `yaml:"max_retry_delay"`

	// EnablePipelinePause pauses the whole pipeline after a call exhausts
	// every provider, until a recovery probe succeeds or the pipeline is
	// resumed manually.
	EnablePipelinePause bool `yaml:"enable_pipeline_pause"`

	// RecoveryInterval is how often the recovery loop re-probes providers
	// while the pipeline is paused.
	RecoveryInterval time.Duration `yaml:"recovery_interval"`

	// BatchConcurrency bounds concurrent requests in BatchGenerate.
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// BudgetConfig controls cost tracking limits and alerting.
type BudgetConfig struct {
	// DailyLimit is the daily budget in USD (0 = no limit).
	DailyLimit float64 `yaml:"daily_limit"`

	// WeeklyLimit is the weekly budget in USD (0 = no limit).
	WeeklyLimit float64 `yaml:"weekly_limit"`

	// MonthlyLimit is the monthly budget in USD (0 = no limit).
	MonthlyLimit float64 `yaml:"monthly_limit"`

	// WarningThreshold is the usage fraction (0.0-1.0) that raises a
	// warning alert. Default 0.8.
	WarningThreshold float64 `yaml:"warning_threshold"`

	// CriticalThreshold is the usage fraction (0.0-1.0) that raises a
	// critical alert. Default 0.95.
	CriticalThreshold float64 `yaml:"critical_threshold"`

	// RetentionDays is how long cost entries are kept in memory.
	RetentionDays int `yaml:"retention_days"`
}

// HealthConfig controls the health monitor.
type HealthConfig struct {
	// CheckInterval is the period of the background health-check loop.
	CheckInterval time.Duration `yaml:"check_interval"`

	// CheckTimeout bounds a single provider probe.
	CheckTimeout time.Duration `yaml:"check_timeout"`

	// ResponseTimeThreshold separates Healthy from Degraded on a
	// successful probe.
	ResponseTimeThreshold time.Duration `yaml:"response_time_threshold"`

	// FailureThreshold is the consecutive-failure count that opens a
	// consecutive_failures alert.
	FailureThreshold int `yaml:"failure_threshold"`

	// MaxHistorySize bounds the per-provider check history.
	MaxHistorySize int `yaml:"max_history_size"`
}

// LedgerConfig controls the durable SQLite cost ledger.
// The ledger is a write-behind archive of cost entries; the in-memory
// monitor remains authoritative for budget math.
type LedgerConfig struct {
	// Enabled turns the ledger on.
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file path.
	Path string `yaml:"path"`

	// RetentionDays is how long archived entries are kept.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for scheduled retention pruning
	// (e.g. "0 3 * * *" for daily at 3 AM). Empty disables scheduling.
	PruneSchedule string `yaml:"prune_schedule"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text", "console").
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`

	// ListenAddr is the address for the /metrics endpoint in `relay run`.
	ListenAddr string `yaml:"listen_addr"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns tracing on. When false a noop tracer is installed.
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this service in traces.
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector endpoint (host:port).
	Endpoint string `yaml:"endpoint"`

	// SampleRatio is the trace sampling ratio (0.0-1.0).
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Strategy name constants accepted by RoutingConfig.Strategy.
const (
	StrategyFailFast      = "fail-fast"
	StrategyRetryPrimary  = "retry-primary"
	StrategyRoundRobin    = "round-robin"
	StrategyCostOptimized = "cost-optimized"
	StrategySmartFallback = "smart-fallback"
)

// ProviderByName returns the provider config with the given name,
// or nil if no such provider is configured.
func (c *Config) ProviderByName(name string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	return nil
}

// EnabledProviders returns the configured providers with Enabled=true,
// preserving configuration order.
func (c *Config) EnabledProviders() []ProviderConfig {
	enabled := make([]ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.Enabled {
			enabled = append(enabled, p)
		}
	}
	return enabled
}
