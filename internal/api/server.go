// Package api serves win-rate analysis and container health checks over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/gauger/internal/config"
	"github.com/yourusername/gauger/internal/metrics"
	"github.com/yourusername/gauger/internal/models"
	"github.com/yourusername/gauger/internal/service"
	"github.com/yourusername/gauger/internal/statistics"
	"github.com/yourusername/gauger/internal/tracing"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// Analysis is the computation surface exposed by the API
type Analysis interface {
	WinRatesAll(ctx context.Context, startDate, endDate, key string) (*service.WinRateTable, error)
	TickerPercentile(ctx context.Context, ticker string, window int, period string) (*statistics.PercentileResult, error)
	TickerBetSchedule(ctx context.Context, ticker string, window int, period string, cfg statistics.BetConfig) (statistics.BetSchedule, error)
	TickerDistribution(ctx context.Context, ticker string, window int, period string, nPoints int, dropThresh float64) (*service.DistributionResult, error)
}

// SnapshotReader looks up persisted win rates
type SnapshotReader interface {
	Latest(ctx context.Context, ticker string, window int) (*models.WinRateSnapshot, error)
	History(ctx context.Context, ticker string, start, end time.Time) ([]*models.WinRateSnapshot, error)
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// Config holds the configuration for the API server.
type Config struct {
	ServiceName string
	Version     string
	Commit      string
	Port        int
	MetricsPath string
	Defaults    config.AnalysisConfig
	Logger      *logrus.Logger
	DB          DatabasePinger
	Analyzer    Analysis
	Snapshots   SnapshotReader
}

// Server exposes analysis endpoints next to health probes.
type Server struct {
	serviceName string
	version     string
	commit      string
	port        int
	metricsPath string
	defaults    config.AnalysisConfig
	server      *http.Server
	logger      *logrus.Entry
	db          DatabasePinger
	analyzer    Analysis
	snapshots   SnapshotReader
	validate    *validator.Validate
	mu          sync.RWMutex
	ready       bool
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	port := cfg.Port
	if port == 0 {
		port = 8080
	}

	v := validator.New()
	v.RegisterValidation("period", func(fl validator.FieldLevel) bool {
		return config.IsValidPeriod(fl.Field().String())
	})

	return &Server{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		commit:      cfg.Commit,
		port:        port,
		metricsPath: cfg.MetricsPath,
		defaults:    withAnalysisDefaults(cfg.Defaults),
		logger:      logger.WithField("component", "api"),
		db:          cfg.DB,
		analyzer:    cfg.Analyzer,
		snapshots:   cfg.Snapshots,
		validate:    v,
	}
}

func withAnalysisDefaults(d config.AnalysisConfig) config.AnalysisConfig {
	if d.Period == "" {
		d.Period = "10y"
	}
	if d.MinBet == 0 {
		d.MinBet = statistics.DefaultMinBet
	}
	if d.MaxBet == 0 {
		d.MaxBet = statistics.DefaultMaxBet
	}
	if d.NSamplesIntegral == 0 {
		d.NSamplesIntegral = statistics.DefaultIntegralSamples
	}
	if d.DistributionPoints == 0 {
		d.DistributionPoints = statistics.DefaultDistributionPoints
	}
	return d
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Handler returns the routed, logged and traced request handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)
	if s.metricsPath != "" {
		mux.Handle("GET "+s.metricsPath, metrics.Handler())
	}

	mux.HandleFunc("GET /api/v1/percentile", s.handlePercentile)
	mux.HandleFunc("GET /api/v1/win-rates", s.handleWinRates)
	mux.HandleFunc("GET /api/v1/bet-schedule", s.handleBetSchedule)
	mux.HandleFunc("GET /api/v1/distribution", s.handleDistribution)
	mux.HandleFunc("GET /api/v1/snapshots/latest", s.handleLatestSnapshot)
	mux.HandleFunc("GET /api/v1/snapshots/history", s.handleSnapshotHistory)

	return tracing.Middleware(s.serviceName, s.logRequests(mux))
}

// Start starts the server in the background and shuts it down when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + strconv.Itoa(s.port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"port":    s.port,
			"service": s.serviceName,
		}).Info("API server starting")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.logger.WithError(err).Warn("API server shutdown failed")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("API server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles the /health endpoint - basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
		Commit:    s.commit,
	})
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.serviceName,
	})
}

// handleReady handles the /ready endpoint - checks database connectivity.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	status := http.StatusOK
	response.Status = "ok"
	if !allHealthy {
		status = http.StatusServiceUnavailable
		response.Status = "not_ready"
	}
	writeJSON(w, status, response)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
