package marketdata

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/gauger/internal/config"
)

// SourceType represents the type of market data provider
type SourceType string

const (
	// YahooSourceType reads the Yahoo Finance chart API
	YahooSourceType SourceType = "yahoo"
	// CSVSourceType reads per-ticker CSV files
	CSVSourceType SourceType = "csv"
)

// NewProvider builds the configured provider, wrapped in a cache when a TTL
// is set
func NewProvider(cfg config.MarketDataConfig, logger *logrus.Logger) (Provider, error) {
	var provider Provider

	switch SourceType(cfg.Provider) {
	case YahooSourceType:
		httpCfg := DefaultHTTPClientConfig()
		if cfg.TimeoutSeconds > 0 {
			httpCfg.Timeout = cfg.Timeout()
		}
		httpCfg.MaxRetries = cfg.MaxRetries
		if cfg.RateLimit > 0 {
			httpCfg.RateLimit = cfg.RateLimit
		}
		provider = NewYahooProvider(NewRateLimitedHTTPClient(httpCfg, logger), cfg.BaseURL, cfg.Tickers, logger)

	case CSVSourceType:
		if cfg.CSVDir == "" {
			return nil, fmt.Errorf("csv provider requires a directory")
		}
		provider = NewCSVProvider(cfg.CSVDir, logger)

	default:
		return nil, fmt.Errorf("unknown market data provider: %s", cfg.Provider)
	}

	if cfg.CacheTTLSeconds > 0 {
		provider = NewCachedProvider(provider, cfg.CacheTTL(), logger)
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"provider":  cfg.Provider,
			"cache_ttl": cfg.CacheTTL().String(),
		}).Info("Created market data provider")
	}
	return provider, nil
}
