package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/gauger/internal/metrics"
)

// HTTPClientConfig holds configuration for HTTP clients
type HTTPClientConfig struct {
	Timeout             time.Duration
	MaxRetries          int
	RetryWaitMin        time.Duration
	RetryWaitMax        time.Duration
	RateLimit           float64 // requests per second
	CircuitBreakerMax   int     // max consecutive failures before circuit break
	CircuitBreakerReset time.Duration
	UserAgent           string
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:             30 * time.Second,
		MaxRetries:          5,
		RetryWaitMin:        100 * time.Millisecond,
		RetryWaitMax:        10 * time.Second,
		RateLimit:           5.0,
		CircuitBreakerMax:   5,
		CircuitBreakerReset: time.Minute,
		UserAgent:           "Mozilla/5.0 (compatible; gauger/1.0)",
	}
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and circuit breaker
type RateLimitedHTTPClient struct {
	client            *retryablehttp.Client
	limiter           *rate.Limiter
	userAgent         string
	circuitBreakerMax int
	resetAfter        time.Duration
	logger            *logrus.Entry

	mu                sync.Mutex
	consecutiveErrors int
	openedAt          time.Time
	isOpen            bool
	probing           bool
	lastError         error
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client
func NewRateLimitedHTTPClient(cfg HTTPClientConfig, logger *logrus.Logger) *RateLimitedHTTPClient {
	if logger == nil {
		logger = logrus.New()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = customRetryPolicy()
	retryClient.Logger = nil

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}

	return &RateLimitedHTTPClient{
		client:            retryClient,
		limiter:           rate.NewLimiter(limit, 1),
		userAgent:         cfg.UserAgent,
		circuitBreakerMax: cfg.CircuitBreakerMax,
		resetAfter:        cfg.CircuitBreakerReset,
		logger:            logger.WithField("component", "http_client"),
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	trial, err := c.checkCircuit()
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		c.abandonTrial(trial)
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	retryReq, err := retryablehttp.FromRequest(req.WithContext(ctx))
	if err != nil {
		c.abandonTrial(trial)
		return nil, err
	}

	resp, err := c.client.Do(retryReq)
	c.record(resp, err, trial)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Get executes a GET request
func (c *RateLimitedHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// IsOpen reports whether the circuit breaker is rejecting requests
func (c *RateLimitedHTTPClient) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isOpen
}

// checkCircuit reports whether the request may proceed. While open, once
// resetAfter has elapsed a single request is admitted as the half-open trial.
func (c *RateLimitedHTTPClient) checkCircuit() (trial bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isOpen {
		return false, nil
	}
	if !c.probing && c.resetAfter > 0 && time.Since(c.openedAt) >= c.resetAfter {
		c.probing = true
		return true, nil
	}
	return false, fmt.Errorf("%w: %v", ErrCircuitOpen, c.lastError)
}

// abandonTrial frees the half-open slot when the trial never reached the server
func (c *RateLimitedHTTPClient) abandonTrial(trial bool) {
	if !trial {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probing = false
}

func (c *RateLimitedHTTPClient) record(resp *http.Response, err error, trial bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil && resp.StatusCode >= 500 {
		err = fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if trial {
		c.probing = false
	}

	if err != nil {
		c.consecutiveErrors++
		c.lastError = err
		if trial {
			c.openedAt = time.Now()
			c.logger.WithError(err).Warn("Circuit breaker trial request failed, staying open")
			return
		}
		if c.circuitBreakerMax > 0 && c.consecutiveErrors >= c.circuitBreakerMax && !c.isOpen {
			c.isOpen = true
			c.openedAt = time.Now()
			metrics.RecordCircuitBreakerTrip()
			c.logger.WithError(err).Warnf("Circuit breaker opened after %d consecutive errors", c.consecutiveErrors)
		}
		return
	}

	c.consecutiveErrors = 0
	c.isOpen = false
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, err
		}

		// Retry on rate limit (429) and server errors
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true, nil
		}

		return false, nil
	}
}
