package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults,
// and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in %q: %w", path, err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and then
// applies environment variable overrides. Environment variables take
// precedence over file values.
//
// Supported overrides:
//
//	RELAY_STRATEGY        routing.strategy
//	RELAY_DAILY_LIMIT     budget.daily_limit
//	RELAY_WEEKLY_LIMIT    budget.weekly_limit
//	RELAY_MONTHLY_LIMIT   budget.monthly_limit
//	RELAY_LOG_LEVEL       logging.level
//	RELAY_LOG_FORMAT      logging.format
//	RELAY_METRICS_ADDR    metrics.listen_addr
//	RELAY_OTLP_ENDPOINT   tracing.endpoint
//	RELAY_HEALTH_INTERVAL health.check_interval (Go duration string)
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in %q: %w", path, err)
	}

	return cfg, nil
}

// applyEnvOverrides applies RELAY_* environment variables to cfg.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RELAY_STRATEGY"); v != "" {
		cfg.Routing.Strategy = v
	}

	if v := os.Getenv("RELAY_DAILY_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RELAY_DAILY_LIMIT %q: %w", v, err)
		}
		cfg.Budget.DailyLimit = limit
	}

	if v := os.Getenv("RELAY_WEEKLY_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RELAY_WEEKLY_LIMIT %q: %w", v, err)
		}
		cfg.Budget.WeeklyLimit = limit
	}

	if v := os.Getenv("RELAY_MONTHLY_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RELAY_MONTHLY_LIMIT %q: %w", v, err)
		}
		cfg.Budget.MonthlyLimit = limit
	}

	if v := os.Getenv("RELAY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("RELAY_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("RELAY_METRICS_ADDR"); v != "" {
		cfg.Metrics.ListenAddr = v
	}

	if v := os.Getenv("RELAY_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = v
	}

	if v := os.Getenv("RELAY_HEALTH_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RELAY_HEALTH_INTERVAL %q: %w", v, err)
		}
		cfg.Health.CheckInterval = interval
	}

	return nil
}
