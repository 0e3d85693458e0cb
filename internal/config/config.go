// Package config provides configuration management for the gauger application.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	MarketData MarketDataConfig `mapstructure:"market_data" validate:"required"`
	Analysis   AnalysisConfig   `mapstructure:"analysis" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// MarketDataConfig selects and tunes the price history provider
type MarketDataConfig struct {
	Provider        string   `mapstructure:"provider" validate:"required,provider"`
	BaseURL         string   `mapstructure:"base_url" validate:"omitempty,url"`
	CSVDir          string   `mapstructure:"csv_dir"`
	APIKey          string   `mapstructure:"api_key"`
	Tickers         []string `mapstructure:"tickers" validate:"required,min=1,dive,required"`
	TimeoutSeconds  int      `mapstructure:"timeout_seconds" validate:"gte=0"`
	MaxRetries      int      `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit       float64  `mapstructure:"rate_limit" validate:"gte=0"`
	CacheTTLSeconds int      `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// AnalysisConfig holds defaults for the ratio density computations
type AnalysisConfig struct {
	Windows            []int   `mapstructure:"windows" validate:"required,min=1,windows"`
	Key                string  `mapstructure:"key" validate:"required,oneof=Open High Low Close Volume"`
	Period             string  `mapstructure:"period" validate:"required,period"`
	NSamplesIntegral   int     `mapstructure:"n_samples_integral" validate:"required,gte=2"`
	MinBet             float64 `mapstructure:"min_bet" validate:"required,gt=0"`
	MaxBet             float64 `mapstructure:"max_bet" validate:"required,gt=0"`
	Bankroll           float64 `mapstructure:"bankroll" validate:"gte=0"`
	DistributionPoints int     `mapstructure:"distribution_points" validate:"gte=0"`
	DropThreshold      float64 `mapstructure:"drop_threshold" validate:"gte=0"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
}

// SchedulerConfig configures periodic win-rate snapshots
type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Cron           string `mapstructure:"cron" validate:"required_if=Enabled true"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
	RetentionCron  string `mapstructure:"retention_cron"`
	RetentionDays  int    `mapstructure:"retention_days" validate:"gte=0"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port           int     `mapstructure:"port" validate:"required,min=1,max=65535"`
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	SamplingRate   float64 `mapstructure:"sampling_rate" validate:"gte=0,lte=1"`
	DaemonAddr     string  `mapstructure:"daemon_addr"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Timeout returns the market data request timeout
func (m MarketDataConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Timeout bounds a single snapshot run
func (s SchedulerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Retention returns how long snapshots are kept; zero keeps them forever
func (s SchedulerConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// CacheTTL returns how long fetched histories stay cached
func (m MarketDataConfig) CacheTTL() time.Duration {
	return time.Duration(m.CacheTTLSeconds) * time.Second
}
