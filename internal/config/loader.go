// Package config provides configuration management for the gauger application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "GAUGER"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// Replace dots with underscores in environment variable names
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gauger")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("market_data.provider", "yahoo")
	v.SetDefault("market_data.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market_data.tickers", DefaultTickers)
	v.SetDefault("market_data.timeout_seconds", 30)
	v.SetDefault("market_data.max_retries", 5)
	v.SetDefault("market_data.rate_limit", 5.0)
	v.SetDefault("market_data.cache_ttl_seconds", 900)

	v.SetDefault("analysis.windows", DefaultWindows)
	v.SetDefault("analysis.key", "Close")
	v.SetDefault("analysis.period", "10y")
	v.SetDefault("analysis.n_samples_integral", 1000)
	v.SetDefault("analysis.min_bet", 1.0/128)
	v.SetDefault("analysis.max_bet", 1.0/4)
	v.SetDefault("analysis.bankroll", 0)
	v.SetDefault("analysis.distribution_points", 1000)
	v.SetDefault("analysis.drop_threshold", 1e-2)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 5)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.cron", "30 21 * * 1-5")
	v.SetDefault("scheduler.timeout_seconds", 600)
	v.SetDefault("scheduler.retention_cron", "0 3 * * 0")
	v.SetDefault("scheduler.retention_days", 365)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.sampling_rate", 0.1)
	v.SetDefault("server.daemon_addr", "localhost:2000")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// DefaultTickers is the universe tracked when none is configured
var DefaultTickers = []string{
	"SPY", "SPXL", "QQQ", "TQQQ", "SOXX", "SOXL", "TSLA",
	"TSLL", "NVDA", "NVDL", "GLD", "TLT", "CONL",
}

// DefaultWindows are the moving-average windows evaluated for every ticker
var DefaultWindows = []int{20, 50, 100, 200}
