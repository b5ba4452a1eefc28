package config

import "time"

// Default values applied by ApplyDefaults for any zero-valued field.
const (
	DefaultStrategy                = StrategySmartFallback
	DefaultCircuitBreakerThreshold = 5
	DefaultCircuitBreakerTimeout   = 60 * time.Second
	DefaultMaxRetryDelay           = 30 * time.Second
	DefaultRecoveryInterval        = 60 * time.Second
	DefaultBatchConcurrency        = 5

	DefaultProviderTimeout    = 30 * time.Second
	DefaultProviderMaxRetries = 2
	DefaultProviderRetryDelay = time.Second

	DefaultWarningThreshold  = 0.80
	DefaultCriticalThreshold = 0.95
	DefaultRetentionDays     = 30

	DefaultHealthCheckInterval    = 60 * time.Second
	DefaultHealthCheckTimeout     = 10 * time.Second
	DefaultResponseTimeThreshold  = 5 * time.Second
	DefaultHealthFailureThreshold = 3
	DefaultMaxHistorySize         = 100

	DefaultLedgerPath          = "data/costs.db"
	DefaultLedgerPruneSchedule = "0 3 * * *"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace  = "relay"
	DefaultMetricsListenAddr = ":9090"

	DefaultTracingServiceName = "relay"
	DefaultTracingSampleRatio = 0.1
)

// DefaultConfig returns a configuration populated entirely with defaults.
// It has no providers; callers must add at least one before validation.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with default values.
// It is called by LoadConfig after unmarshaling and can be called directly
// on hand-constructed configs (tests, embedding callers).
func ApplyDefaults(cfg *Config) {
	if cfg.Routing.Strategy == "" {
		cfg.Routing.Strategy = DefaultStrategy
	}
	if cfg.Routing.CircuitBreakerThreshold == 0 {
		cfg.Routing.CircuitBreakerThreshold = DefaultCircuitBreakerThreshold
	}
	if cfg.Routing.CircuitBreakerTimeout == 0 {
		cfg.Routing.CircuitBreakerTimeout = DefaultCircuitBreakerTimeout
	}
	if cfg.Routing.MaxRetryDelay == 0 {
		cfg.Routing.MaxRetryDelay = DefaultMaxRetryDelay
	}
	if cfg.Routing.RecoveryInterval == 0 {
		cfg.Routing.RecoveryInterval = DefaultRecoveryInterval
	}
	if cfg.Routing.BatchConcurrency == 0 {
		cfg.Routing.BatchConcurrency = DefaultBatchConcurrency
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Timeout == 0 {
			p.Timeout = DefaultProviderTimeout
		}
		if p.MaxRetries == 0 {
			p.MaxRetries = DefaultProviderMaxRetries
		}
		if p.RetryDelay == 0 {
			p.RetryDelay = DefaultProviderRetryDelay
		}
		if p.Priority == 0 {
			p.Priority = i + 1
		}
	}

	if cfg.Budget.WarningThreshold == 0 {
		cfg.Budget.WarningThreshold = DefaultWarningThreshold
	}
	if cfg.Budget.CriticalThreshold == 0 {
		cfg.Budget.CriticalThreshold = DefaultCriticalThreshold
	}
	if cfg.Budget.RetentionDays == 0 {
		cfg.Budget.RetentionDays = DefaultRetentionDays
	}

	if cfg.Health.CheckInterval == 0 {
		cfg.Health.CheckInterval = DefaultHealthCheckInterval
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
	if cfg.Health.ResponseTimeThreshold == 0 {
		cfg.Health.ResponseTimeThreshold = DefaultResponseTimeThreshold
	}
	if cfg.Health.FailureThreshold == 0 {
		cfg.Health.FailureThreshold = DefaultHealthFailureThreshold
	}
	if cfg.Health.MaxHistorySize == 0 {
		cfg.Health.MaxHistorySize = DefaultMaxHistorySize
	}

	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = DefaultRetentionDays
	}
	if cfg.Ledger.PruneSchedule == "" {
		cfg.Ledger.PruneSchedule = DefaultLedgerPruneSchedule
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.ListenAddr == "" {
		cfg.Metrics.ListenAddr = DefaultMetricsListenAddr
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}
