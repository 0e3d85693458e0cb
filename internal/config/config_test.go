// Package config provides configuration management for the gauger application.
package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	validConfigPath              = "testdata/valid_config.yaml"
	expansionConfigPath          = "testdata/expansion_config.yaml"
	nonexistentConfigPath        = "testdata/nonexistent_config.yaml"
	expectedNoErrorLoadingConfig = "expected no error loading config, got %v"
	expectedNoErrorMsg           = "expected no error, got %v"
	gaugerName                   = "gauger"
	developmentEnv               = "development"
	testAppName                  = "test-app"
	testDBPassword               = "TEST_DB_PASSWORD"
	testCSVDir                   = "TEST_CSV_DIR"
	expandedSecretValue          = "expanded_secret_value"
)

func loadValid(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorLoadingConfig, err)
	}
	return cfg
}

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg := loadValid(t)

	if cfg.App.Name != gaugerName {
		t.Errorf("expected app name '%s', got '%s'", gaugerName, cfg.App.Name)
	}
	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}
	if len(cfg.MarketData.Tickers) != 3 {
		t.Errorf("expected 3 tickers, got %v", cfg.MarketData.Tickers)
	}
	if len(cfg.Analysis.Windows) != 4 || cfg.Analysis.Windows[3] != 200 {
		t.Errorf("expected windows [20 50 100 200], got %v", cfg.Analysis.Windows)
	}
	if cfg.Analysis.MinBet != 1.0/128 {
		t.Errorf("expected min bet 1/128, got %v", cfg.Analysis.MinBet)
	}
	if cfg.MarketData.CacheTTL().Seconds() != 600 {
		t.Errorf("expected cache ttl 600s, got %v", cfg.MarketData.CacheTTL())
	}
	if cfg.Scheduler.Retention().Hours() != 365*24 {
		t.Errorf("expected 365 day retention, got %v", cfg.Scheduler.Retention())
	}
	if cfg.Scheduler.Timeout().Minutes() != 10 {
		t.Errorf("expected 10 minute snapshot timeout, got %v", cfg.Scheduler.Timeout())
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	_, err := Load(nonexistentConfigPath)
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("GAUGER_APP_NAME", testAppName)

	cfg := loadValid(t)
	if cfg.App.Name != testAppName {
		t.Errorf("expected app name '%s' from environment, got '%s'", testAppName, cfg.App.Name)
	}
}

// TestLoadConfigEnvironmentVariableExpansion tests ${VAR} expansion in the config file
func TestLoadConfigEnvironmentVariableExpansion(t *testing.T) {
	t.Setenv(testDBPassword, expandedSecretValue)
	t.Setenv(testCSVDir, "/data/prices")

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config with expansion, got %v", err)
	}

	if cfg.Database.Password != expandedSecretValue {
		t.Errorf("expected password '%s' from environment expansion, got '%s'", expandedSecretValue, cfg.Database.Password)
	}
	if cfg.MarketData.CSVDir != "/data/prices" {
		t.Errorf("expected csv dir from environment expansion, got '%s'", cfg.MarketData.CSVDir)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
}

// TestLoadWithDefaultsMissingFile tests that defaults apply without a file
func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.Name != gaugerName {
		t.Errorf("expected default app name, got '%s'", cfg.App.Name)
	}
	if cfg.MarketData.Provider != "yahoo" {
		t.Errorf("expected default provider yahoo, got '%s'", cfg.MarketData.Provider)
	}
	if len(cfg.MarketData.Tickers) != len(DefaultTickers) {
		t.Errorf("expected %d default tickers, got %d", len(DefaultTickers), len(cfg.MarketData.Tickers))
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

// TestValidateSuccess tests validation of a valid configuration
func TestValidateSuccess(t *testing.T) {
	cfg := loadValid(t)

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

// TestValidateInvalidFields tests the custom field validators
func TestValidateInvalidFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"environment", func(c *Config) { c.App.Environment = "invalid" }, "Environment"},
		{"log level", func(c *Config) { c.App.LogLevel = "trace" }, "LogLevel"},
		{"provider", func(c *Config) { c.MarketData.Provider = "bloomberg" }, "Provider"},
		{"period", func(c *Config) { c.Analysis.Period = "forever" }, "Period"},
		{"descending windows", func(c *Config) { c.Analysis.Windows = []int{50, 20} }, "Windows"},
		{"zero window", func(c *Config) { c.Analysis.Windows = []int{0, 20} }, "Windows"},
		{"empty tickers", func(c *Config) { c.MarketData.Tickers = nil }, "Tickers"},
		{"key", func(c *Config) { c.Analysis.Key = "Adj Close" }, "Key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadValid(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error mentioning %s, got: %v", tt.wantMsg, err)
			}
		})
	}
}

// TestValidateBetBounds tests the power-of-two bet constraint
func TestValidateBetBounds(t *testing.T) {
	cfg := loadValid(t)
	cfg.Analysis.MinBet = 1.0 / 100
	cfg.Analysis.MaxBet = 1.0 / 4

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for non power-of-two bet ratio")
	}
	if !strings.Contains(err.Error(), "power of 2") {
		t.Errorf("expected power of 2 error, got: %v", err)
	}
}

// TestValidateCrossField tests cross-field constraints
func TestValidateCrossField(t *testing.T) {
	cfg := loadValid(t)
	cfg.MarketData.Provider = "csv"
	cfg.MarketData.CSVDir = ""
	if err := Validate(cfg); err == nil {
		t.Error("expected error for csv provider without csv_dir")
	}

	cfg = loadValid(t)
	cfg.Database.Enabled = false
	if err := Validate(cfg); err == nil {
		t.Error("expected error for scheduler without database")
	}

	cfg = loadValid(t)
	cfg.App.Environment = "production"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for production without database SSL")
	}
}

// TestIsValidPeriod tests period spec syntax
func TestIsValidPeriod(t *testing.T) {
	for _, p := range []string{"5d", "1wk", "6mo", "10y", "ytd", "max"} {
		if !IsValidPeriod(p) {
			t.Errorf("expected %q to be valid", p)
		}
	}
	for _, p := range []string{"", "0d", "5m", "y", "-1y", "1 y"} {
		if IsValidPeriod(p) {
			t.Errorf("expected %q to be invalid", p)
		}
	}
}

// TestGetDatabaseDSN tests DSN generation
func TestGetDatabaseDSN(t *testing.T) {
	cfg := loadValid(t)

	dsn := cfg.GetDatabaseDSN()
	if !strings.HasPrefix(dsn, "postgres://") {
		t.Errorf("expected DSN to start with 'postgres://', got '%s'", dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("expected DSN to carry ssl mode, got '%s'", dsn)
	}
}

// TestEnvironmentChecks tests environment helpers
func TestEnvironmentChecks(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: developmentEnv}}
	if !cfg.IsDevelopment() || cfg.IsProduction() || cfg.IsStaging() {
		t.Error("expected development only")
	}

	cfg.App.Environment = "staging"
	if !cfg.IsStaging() {
		t.Error("expected IsStaging() to return true")
	}

	cfg.App.Environment = "production"
	if !cfg.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}
}

// TestOverlaySecrets tests applying secrets to configuration
func TestOverlaySecrets(t *testing.T) {
	cfg := loadValid(t)
	overlaySecretsOnConfig(cfg, &SecretsOverlay{MarketDataAPIKey: "key-123"})

	if cfg.MarketData.APIKey != "key-123" {
		t.Errorf("expected api key overlay, got '%s'", cfg.MarketData.APIKey)
	}
	if cfg.Database.Password != "secret" {
		t.Errorf("expected empty secret to leave password unchanged, got '%s'", cfg.Database.Password)
	}
}

// TestParseSecretData tests decoding string, binary and empty secret payloads
func TestParseSecretData(t *testing.T) {
	secrets, err := parseSecretData(&secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"database_password":"pw","market_data_api_key":"k"}`),
	})
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if secrets.DatabasePassword != "pw" || secrets.MarketDataAPIKey != "k" {
		t.Errorf("unexpected secrets: %+v", secrets)
	}

	secrets, err = parseSecretData(&secretsmanager.GetSecretValueOutput{
		SecretBinary: []byte(`{"database_password":"bin"}`),
	})
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if secrets.DatabasePassword != "bin" {
		t.Errorf("expected binary secret password, got '%s'", secrets.DatabasePassword)
	}

	if _, err := parseSecretData(&secretsmanager.GetSecretValueOutput{}); !errors.Is(err, errNoSecretDataFound) {
		t.Errorf("expected errNoSecretDataFound, got %v", err)
	}

	if _, err := parseSecretData(&secretsmanager.GetSecretValueOutput{SecretString: aws.String("{")}); err == nil {
		t.Error("expected error for malformed secret JSON")
	}
}
