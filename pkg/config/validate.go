package config

import (
	"errors"
	"fmt"
)

// validStrategies is the set of accepted routing strategy names.
var validStrategies = map[string]bool{
	StrategyFailFast:      true,
	StrategyRetryPrimary:  true,
	StrategyRoundRobin:    true,
	StrategyCostOptimized: true,
	StrategySmartFallback: true,
}

// Validate checks the configuration for internal consistency.
// It returns the first error found, or nil if the config is valid.
// Validate assumes ApplyDefaults has already run.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if len(cfg.Providers) == 0 {
		return errors.New("at least one provider must be configured")
	}

	seen := make(map[string]bool, len(cfg.Providers))
	enabled := 0
	for i, p := range cfg.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("provider %q: duplicate name", p.Name)
		}
		seen[p.Name] = true

		if p.Enabled {
			enabled++
		}
		if p.Priority < 0 {
			return fmt.Errorf("provider %q: priority must be non-negative", p.Name)
		}
		if p.RateLimitRPM < 0 {
			return fmt.Errorf("provider %q: rate_limit_rpm must be non-negative", p.Name)
		}
		if p.RateLimitTPM < 0 {
			return fmt.Errorf("provider %q: rate_limit_tpm must be non-negative", p.Name)
		}
		if p.CostPer1KTokens < 0 {
			return fmt.Errorf("provider %q: cost_per_1k_tokens must be non-negative", p.Name)
		}
		if p.Timeout <= 0 {
			return fmt.Errorf("provider %q: timeout must be positive", p.Name)
		}
		if p.MaxRetries < 0 {
			return fmt.Errorf("provider %q: max_retries must be non-negative", p.Name)
		}
	}

	if enabled == 0 {
		return errors.New("at least one provider must be enabled")
	}

	if !validStrategies[cfg.Routing.Strategy] {
		return fmt.Errorf("unknown routing strategy %q", cfg.Routing.Strategy)
	}
	if cfg.Routing.CircuitBreakerThreshold < 1 {
		return errors.New("circuit_breaker_threshold must be at least 1")
	}
	if cfg.Routing.CircuitBreakerTimeout <= 0 {
		return errors.New("circuit_breaker_timeout must be positive")
	}
	if cfg.Routing.MaxFallbackAttempts < 0 {
		return errors.New("max_fallback_attempts must be non-negative")
	}
	if cfg.Routing.BatchConcurrency < 1 {
		return errors.New("batch_concurrency must be at least 1")
	}

	if cfg.Budget.DailyLimit < 0 || cfg.Budget.WeeklyLimit < 0 || cfg.Budget.MonthlyLimit < 0 {
		return errors.New("budget limits must be non-negative")
	}
	if cfg.Budget.WarningThreshold <= 0 || cfg.Budget.WarningThreshold > 1 {
		return errors.New("warning_threshold must be in (0, 1]")
	}
	if cfg.Budget.CriticalThreshold <= 0 || cfg.Budget.CriticalThreshold > 1 {
		return errors.New("critical_threshold must be in (0, 1]")
	}
	if cfg.Budget.WarningThreshold > cfg.Budget.CriticalThreshold {
		return errors.New("warning_threshold must not exceed critical_threshold")
	}

	if cfg.Health.CheckInterval <= 0 {
		return errors.New("health check_interval must be positive")
	}
	if cfg.Health.CheckTimeout <= 0 {
		return errors.New("health check_timeout must be positive")
	}
	if cfg.Health.ResponseTimeThreshold <= 0 {
		return errors.New("health response_time_threshold must be positive")
	}
	if cfg.Health.FailureThreshold < 1 {
		return errors.New("health failure_threshold must be at least 1")
	}
	if cfg.Health.MaxHistorySize < 1 {
		return errors.New("health max_history_size must be at least 1")
	}

	if cfg.Ledger.Enabled && cfg.Ledger.Path == "" {
		return errors.New("ledger path is required when the ledger is enabled")
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			return errors.New("tracing endpoint is required when tracing is enabled")
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
			return errors.New("tracing sample_ratio must be in [0, 1]")
		}
	}

	return nil
}
