// Package metrics provides centralized Prometheus metrics registry for gauger.
package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gauger"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	WinRateComputationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "win_rate_computations_total",
		Help:      "Total number of win rate computations by status",
	}, []string{"status"})
	SkippedWindowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "skipped_windows_total",
		Help:      "Ticker/window pairs skipped for insufficient data",
	}, []string{"window"})
	MarketDataFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "market_data_fetches_total",
		Help:      "Total number of market data fetches by source and status",
	}, []string{"source", "status"})
	CircuitBreakerTripsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of circuit breaker trips",
	})
	SnapshotsPersistedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_persisted_total",
		Help:      "Total number of win rate snapshots written",
	})
)

// Gauge metrics
var (
	WinRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "win_rate",
		Help:      "Latest win rate for each ticker and moving-average window",
	}, []string{"ticker", "window"})
	PriceRatio = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "price_ratio",
		Help:      "Latest price to moving average ratio for each ticker and window",
	}, []string{"ticker", "window"})
	CacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "market_data_cache_hit_ratio",
		Help:      "Hit ratio of the market data cache",
	})
)

// Histogram metrics
var (
	ComputationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "computation_duration_seconds",
		Help:      "Duration of analysis operations in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	MarketDataFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "market_data_fetch_duration_seconds",
		Help:      "Latency of market data fetches in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(WinRateComputationsTotal)
		registry.MustRegister(SkippedWindowsTotal)
		registry.MustRegister(MarketDataFetchesTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)
		registry.MustRegister(SnapshotsPersistedTotal)

		registry.MustRegister(WinRate)
		registry.MustRegister(PriceRatio)
		registry.MustRegister(CacheHitRatio)

		registry.MustRegister(ComputationDuration)
		registry.MustRegister(MarketDataFetchDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordWinRate records a successful computation and publishes its values.
func RecordWinRate(ticker string, window int, ratio, winRate float64) {
	w := strconv.Itoa(window)
	WinRateComputationsTotal.WithLabelValues("success").Inc()
	WinRate.WithLabelValues(ticker, w).Set(winRate)
	PriceRatio.WithLabelValues(ticker, w).Set(ratio)
}

// RecordSkippedWindow records a window that had too little data.
func RecordSkippedWindow(window int) {
	WinRateComputationsTotal.WithLabelValues("skipped").Inc()
	SkippedWindowsTotal.WithLabelValues(strconv.Itoa(window)).Inc()
}

// RecordComputationFailure records a computation that returned an error.
func RecordComputationFailure() {
	WinRateComputationsTotal.WithLabelValues("failure").Inc()
}

// RecordComputationDuration records how long an analysis operation took.
func RecordComputationDuration(operation string, durationSeconds float64) {
	ComputationDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordFetch records a market data fetch.
// status should be one of: "success", "failure", "cached"
func RecordFetch(source, status string, durationSeconds float64) {
	MarketDataFetchesTotal.WithLabelValues(source, status).Inc()
	if status != "cached" {
		MarketDataFetchDuration.Observe(durationSeconds)
	}
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip() {
	CircuitBreakerTripsTotal.Inc()
}

// RecordSnapshotsPersisted records stored snapshots.
func RecordSnapshotsPersisted(count int) {
	SnapshotsPersistedTotal.Add(float64(count))
}

// UpdateCacheHitRatio updates the cache hit ratio gauge.
func UpdateCacheHitRatio(ratio float64) {
	CacheHitRatio.Set(ratio)
}
