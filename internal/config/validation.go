// Package config provides configuration management for the gauger application.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yourusername/gauger/internal/statistics"
)

var periodPattern = regexp.MustCompile(`^([1-9][0-9]*(d|wk|mo|y)|ytd|max)$`)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("environment", validateEnvironment)
	v.RegisterValidation("loglevel", validateLogLevel)
	v.RegisterValidation("provider", validateProvider)
	v.RegisterValidation("period", validatePeriod)
	v.RegisterValidation("windows", validateWindows)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// IsValidPeriod reports whether s is a period spec such as 5d, 6mo, 10y, ytd or max
func IsValidPeriod(s string) bool {
	return periodPattern.MatchString(s)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateProvider(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "yahoo", "csv":
		return true
	default:
		return false
	}
}

func validatePeriod(fl validator.FieldLevel) bool {
	return IsValidPeriod(fl.Field().String())
}

// validateWindows requires positive, strictly ascending windows
func validateWindows(fl validator.FieldLevel) bool {
	windows, ok := fl.Field().Interface().([]int)
	if !ok || len(windows) == 0 {
		return false
	}
	for i, w := range windows {
		if w < 1 {
			return false
		}
		if i > 0 && w <= windows[i-1] {
			return false
		}
	}
	return true
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	bets := statistics.BetConfig{
		MinBet:           cfg.Analysis.MinBet,
		MaxBet:           cfg.Analysis.MaxBet,
		NSamplesIntegral: cfg.Analysis.NSamplesIntegral,
	}
	if err := bets.Validate(); err != nil {
		return fmt.Errorf("invalid analysis bet bounds: %w", err)
	}

	if cfg.MarketData.Provider == "csv" && strings.TrimSpace(cfg.MarketData.CSVDir) == "" {
		return fmt.Errorf("market_data.csv_dir is required for the csv provider")
	}

	if cfg.Scheduler.Enabled && !cfg.Database.Enabled {
		return fmt.Errorf("scheduler requires database to be enabled")
	}

	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required", "required_if":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "provider":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: yahoo, csv\n", field)
		case "period":
			errMsg += fmt.Sprintf("- Field '%s' must be a period like 5d, 3mo, 10y, ytd or max, got '%v'\n", field, value)
		case "windows":
			errMsg += fmt.Sprintf("- Field '%s' must list positive windows in ascending order\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
