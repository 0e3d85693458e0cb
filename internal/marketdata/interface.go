// Package marketdata fetches OHLCV histories for the ticker universe.
package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/gauger/internal/models"
)

// Provider defines the interface for fetching price histories from external sources
type Provider interface {
	// Fetch retrieves daily bars for the tickers between start and end inclusive.
	// Tickers with no data are omitted from the table.
	Fetch(ctx context.Context, tickers []string, start, end time.Time) (models.Table, error)

	// FetchAll retrieves daily bars for the full universe
	FetchAll(ctx context.Context, start, end time.Time) (models.Table, []string, error)

	// ListAllTickers returns the ticker universe
	ListAllTickers(ctx context.Context) ([]string, error)

	// Name returns the name of the provider
	Name() string
}

// DataSourceError represents errors from provider operations
type DataSourceError struct {
	Source  string // Provider name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded = "rate_limit_exceeded"
	ErrCodeNotFound          = "not_found"
	ErrCodeInvalidData       = "invalid_data"
	ErrCodeNetworkError      = "network_error"
	ErrCodeServerError       = "server_error"
	ErrCodeCircuitOpen       = "circuit_open"
	ErrCodeUnknown           = "unknown"
)

var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrNotFound          = errors.New("data not found")
	ErrInvalidData       = errors.New("invalid data format")
	ErrCircuitOpen       = errors.New("circuit breaker open")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrNoData            = errors.New("no data returned for any ticker")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// fetchAll is shared by providers whose universe comes from ListAllTickers
func fetchAll(ctx context.Context, p Provider, start, end time.Time) (models.Table, []string, error) {
	tickers, err := p.ListAllTickers(ctx)
	if err != nil {
		return nil, nil, err
	}
	table, err := p.Fetch(ctx, tickers, start, end)
	if err != nil {
		return nil, nil, err
	}
	return table, tickers, nil
}
