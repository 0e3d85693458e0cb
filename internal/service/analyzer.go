// Package service runs the ratio density analysis over fetched market data.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/gauger/internal/config"
	applog "github.com/yourusername/gauger/internal/logger"
	"github.com/yourusername/gauger/internal/marketdata"
	"github.com/yourusername/gauger/internal/metrics"
	"github.com/yourusername/gauger/internal/models"
	"github.com/yourusername/gauger/internal/statistics"
	"github.com/yourusername/gauger/internal/tracing"
)

// DefaultWindows are the moving-average windows evaluated per ticker
var DefaultWindows = []int{20, 50, 100, 200}

// Analyzer drives the statistics package over provider data
type Analyzer struct {
	provider    marketdata.Provider
	windows     []int
	key         string
	logger      *logrus.Logger
	analysisLog *applog.AnalysisLogger
	dataLog     *applog.DataLogger
	now         func() time.Time
}

// AnalyzerOption customizes an Analyzer
type AnalyzerOption func(*Analyzer)

// WithWindows overrides the evaluated windows
func WithWindows(windows []int) AnalyzerOption {
	return func(a *Analyzer) {
		if len(windows) > 0 {
			a.windows = sortedWindows(windows)
		}
	}
}

// WithKey overrides the default price column
func WithKey(key string) AnalyzerOption {
	return func(a *Analyzer) {
		if key != "" {
			a.key = key
		}
	}
}

// WithClock sets the time source used to resolve periods
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		a.now = now
	}
}

// NewAnalyzer creates an analyzer reading from provider
func NewAnalyzer(provider marketdata.Provider, logger *logrus.Logger, opts ...AnalyzerOption) *Analyzer {
	if logger == nil {
		logger = applog.NewDiscardLogger()
	}
	a := &Analyzer{
		provider:    provider,
		windows:     append([]int(nil), DefaultWindows...),
		key:         models.KeyClose,
		logger:      logger,
		analysisLog: applog.NewAnalysisLogger(logger),
		dataLog:     applog.NewDataLogger(logger),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAnalyzerFromConfig creates an analyzer using the analysis section defaults
func NewAnalyzerFromConfig(provider marketdata.Provider, cfg config.AnalysisConfig, logger *logrus.Logger) *Analyzer {
	return NewAnalyzer(provider, logger, WithWindows(cfg.Windows), WithKey(cfg.Key))
}

// Windows returns the evaluated windows in ascending order
func (a *Analyzer) Windows() []int {
	return append([]int(nil), a.windows...)
}

// WinRateTable holds win rates keyed by ticker and window. A missing entry
// means the ticker had too little history for that window.
type WinRateTable struct {
	Tickers []string                   `json:"tickers" yaml:"tickers"`
	Windows []int                      `json:"windows" yaml:"windows"`
	Values  map[string]map[int]float64 `json:"win_rates" yaml:"win_rates"`
	Ratios  map[string]map[int]float64 `json:"price_ratios" yaml:"price_ratios"`
	AsOf    map[string]time.Time       `json:"as_of" yaml:"as_of"`
	Start   time.Time                  `json:"start" yaml:"start"`
	End     time.Time                  `json:"end" yaml:"end"`
	Skipped int                        `json:"skipped" yaml:"skipped"`
}

// WinRateRow is one computed ticker/window pair
type WinRateRow struct {
	Ticker  string    `json:"ticker" yaml:"ticker"`
	Window  int       `json:"window" yaml:"window"`
	Ratio   float64   `json:"price_ratio" yaml:"price_ratio"`
	WinRate float64   `json:"win_rate" yaml:"win_rate"`
	AsOf    time.Time `json:"as_of" yaml:"as_of"`
}

// Get returns the win rate for a ticker and window
func (t *WinRateTable) Get(ticker string, window int) (float64, bool) {
	v, ok := t.Values[ticker][window]
	return v, ok
}

// Rows flattens the table in ticker order, then ascending window
func (t *WinRateTable) Rows() []WinRateRow {
	var rows []WinRateRow
	for _, ticker := range t.Tickers {
		for _, window := range t.Windows {
			v, ok := t.Values[ticker][window]
			if !ok {
				continue
			}
			rows = append(rows, WinRateRow{
				Ticker:  ticker,
				Window:  window,
				Ratio:   t.Ratios[ticker][window],
				WinRate: v,
				AsOf:    t.AsOf[ticker],
			})
		}
	}
	return rows
}

func (t *WinRateTable) set(ticker string, window int, asOf time.Time, ratio, winRate float64) {
	if t.Values[ticker] == nil {
		t.Values[ticker] = make(map[int]float64, len(t.Windows))
		t.Ratios[ticker] = make(map[int]float64, len(t.Windows))
	}
	t.Values[ticker][window] = winRate
	t.Ratios[ticker][window] = ratio
	t.AsOf[ticker] = asOf
}

// WinRatesAll computes the win rate of every universe ticker for every
// window. When endDate is empty startDate may be a period spec such as 10y.
// Pairs without enough history are logged and skipped.
func (a *Analyzer) WinRatesAll(ctx context.Context, startDate, endDate, key string) (*WinRateTable, error) {
	began := time.Now()
	if key == "" {
		key = a.key
	}

	start, end, err := marketdata.ResolveRange(startDate, endDate, a.now())
	if err != nil {
		return nil, err
	}

	data, tickers, err := a.fetchAll(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market data: %w", err)
	}
	a.dataLog.LogFetch(a.provider.Name(), len(tickers), start, end, countBars(data), false)

	table := &WinRateTable{
		Tickers: tickers,
		Windows: a.Windows(),
		Values:  make(map[string]map[int]float64, len(tickers)),
		Ratios:  make(map[string]map[int]float64, len(tickers)),
		AsOf:    make(map[string]time.Time, len(tickers)),
		Start:   start,
		End:     end,
	}

	computed := 0
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		series, err := seriesFor(data, ticker, key)
		if unusableSeries(err) {
			table.Skipped += len(table.Windows)
			a.dataLog.LogFetchFailed(a.provider.Name(), ticker, err)
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, window := range table.Windows {
			t0 := time.Now()
			result, err := statistics.Percentile(series, window)
			if errors.Is(err, statistics.ErrInvalidSample) {
				table.Skipped++
				metrics.RecordSkippedWindow(window)
				a.analysisLog.LogSkippedWindow(ticker, window, len(series), err)
				continue
			}
			if err != nil {
				metrics.RecordComputationFailure()
				return nil, fmt.Errorf("win rate for %s window %d: %w", ticker, window, err)
			}

			last, _ := series.Last()
			table.set(ticker, window, last.Time, result.Ratio, result.WinRate)
			computed++
			metrics.RecordWinRate(ticker, window, result.Ratio, result.WinRate)
			a.analysisLog.LogWinRate(ticker, window, result.Ratio, result.WinRate, msSince(t0))
		}
	}

	metrics.RecordComputationDuration("win_rates_all", time.Since(began).Seconds())
	a.analysisLog.LogBatchCompleted("win_rates_all", len(tickers), computed, table.Skipped, msSince(began))
	return table, nil
}

// StockData returns, per ticker, a frame with price and volume columns and,
// when returnMovingAverage is set, price_ratio_{w}ma and price_{w}ma for each
// window. Rows missing data for any ticker are dropped first and all columns
// are inner-joined on date.
func (a *Analyzer) StockData(ctx context.Context, tickers []string, startDate, endDate string, returnMovingAverage bool) (map[string]*models.Frame, error) {
	began := time.Now()

	start, end, err := marketdata.ResolveRange(startDate, endDate, a.now())
	if err != nil {
		return nil, err
	}

	data, err := a.fetch(ctx, tickers, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market data: %w", err)
	}
	a.dataLog.LogFetch(a.provider.Name(), len(tickers), start, end, countBars(data), false)

	frames, err := a.buildFrames(tickers, data.DropIncomplete(), returnMovingAverage)
	if err != nil {
		return nil, err
	}

	metrics.RecordComputationDuration("stock_data", time.Since(began).Seconds())
	a.analysisLog.LogBatchCompleted("stock_data", len(tickers), len(frames), 0, msSince(began))
	return frames, nil
}

// AllStockData runs StockData over the provider's full universe
func (a *Analyzer) AllStockData(ctx context.Context, startDate, endDate string, returnMovingAverage bool) (map[string]*models.Frame, error) {
	tickers, err := a.provider.ListAllTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	return a.StockData(ctx, tickers, startDate, endDate, returnMovingAverage)
}

func (a *Analyzer) buildFrames(tickers []string, data models.Table, returnMovingAverage bool) (map[string]*models.Frame, error) {
	frames := make(map[string]*models.Frame, len(tickers))
	for _, ticker := range tickers {
		bars, ok := data[ticker]
		if !ok {
			continue
		}

		closes, err := bars.Series(models.KeyClose)
		if err != nil {
			return nil, err
		}
		volumes, err := bars.Series(models.KeyVolume)
		if err != nil {
			return nil, err
		}

		parts := []*models.Frame{
			models.FrameFromSeries("price", closes),
			models.FrameFromSeries("volume", volumes),
		}
		if returnMovingAverage {
			for _, window := range a.windows {
				rolling := statistics.RollingMA(closes, window)
				parts = append(parts, models.MergeFrames(
					models.FrameFromSeries(fmt.Sprintf("price_ratio_%dma", window), rolling.Ratio),
					models.FrameFromSeries(fmt.Sprintf("price_%dma", window), rolling.MovingAvg),
				))
			}
		}
		frames[ticker] = models.MergeFrames(parts...)
	}
	return frames, nil
}

// TickerPercentile reports where the latest ratio of one ticker sits in its
// history over the given period
func (a *Analyzer) TickerPercentile(ctx context.Context, ticker string, window int, period string) (*statistics.PercentileResult, error) {
	series, err := a.tickerSeries(ctx, ticker, window, period)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	result, err := statistics.Percentile(series, window)
	if err != nil {
		return nil, err
	}
	metrics.RecordComputationDuration("percentile", time.Since(began).Seconds())
	a.analysisLog.LogWinRate(ticker, window, result.Ratio, result.WinRate, msSince(began))
	return &result, nil
}

// TickerBetSchedule derives the martingale schedule for one ticker
func (a *Analyzer) TickerBetSchedule(ctx context.Context, ticker string, window int, period string, cfg statistics.BetConfig) (statistics.BetSchedule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	series, err := a.tickerSeries(ctx, ticker, window, period)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	schedule, err := statistics.BetRatiosMartingale(series, window, cfg)
	if err != nil {
		return nil, err
	}
	metrics.RecordComputationDuration("bet_schedule", time.Since(began).Seconds())
	a.analysisLog.LogBetSchedule(ticker, window, cfg.MinBet, cfg.MaxBet, schedule.Len())
	return schedule, nil
}

// DistributionResult is a sampled ratio density with the current ratio marked
type DistributionResult struct {
	Ticker     string    `json:"ticker" yaml:"ticker"`
	Window     int       `json:"window" yaml:"window"`
	X          []float64 `json:"x" yaml:"x"`
	Y          []float64 `json:"y" yaml:"y"`
	Ratio      float64   `json:"price_ratio" yaml:"price_ratio"`
	RatioIndex int       `json:"price_ratio_index" yaml:"price_ratio_index"`
}

// TickerDistribution samples the ratio density of one ticker over the
// observed ratio range
func (a *Analyzer) TickerDistribution(ctx context.Context, ticker string, window int, period string, nPoints int, dropThresh float64) (*DistributionResult, error) {
	series, err := a.tickerSeries(ctx, ticker, window, period)
	if err != nil {
		return nil, err
	}

	ratio := statistics.DivideByRollingMA(series, window)
	p, err := statistics.NewGaussianKDE(ratio.Values())
	if err != nil {
		return nil, err
	}

	lo, hi := bounds(ratio.Values())
	xs, ys := statistics.Distribution(p, lo, hi, nPoints, dropThresh)
	last, _ := ratio.Last()

	return &DistributionResult{
		Ticker:     ticker,
		Window:     window,
		X:          xs,
		Y:          ys,
		Ratio:      last.Value,
		RatioIndex: statistics.NearestIndex(xs, last.Value),
	}, nil
}

func (a *Analyzer) tickerSeries(ctx context.Context, ticker string, window int, period string) (models.PriceSeries, error) {
	if ticker == "" {
		return nil, models.ErrTickerRequired
	}
	if window < 1 {
		return nil, &statistics.ConfigurationError{Field: "window", Message: "must be positive"}
	}

	start, end, err := marketdata.ResolvePeriod(period, a.now())
	if err != nil {
		return nil, err
	}

	data, err := a.fetch(ctx, []string{ticker}, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", ticker, err)
	}
	a.dataLog.LogFetch(a.provider.Name(), 1, start, end, countBars(data), false)

	return seriesFor(data, ticker, a.key)
}

// fetch and fetchAll run provider calls inside a trace subsegment
func (a *Analyzer) fetch(ctx context.Context, tickers []string, start, end time.Time) (models.Table, error) {
	var data models.Table
	err := tracing.Capture(ctx, "marketdata.fetch", func(ctx context.Context) error {
		tracing.AddAnnotation(ctx, "provider", a.provider.Name())
		var err error
		data, err = a.provider.Fetch(ctx, tickers, start, end)
		return err
	})
	return data, err
}

func (a *Analyzer) fetchAll(ctx context.Context, start, end time.Time) (models.Table, []string, error) {
	var (
		data    models.Table
		tickers []string
	)
	err := tracing.Capture(ctx, "marketdata.fetch_all", func(ctx context.Context) error {
		tracing.AddAnnotation(ctx, "provider", a.provider.Name())
		var err error
		data, tickers, err = a.provider.FetchAll(ctx, start, end)
		return err
	})
	return data, tickers, err
}

// seriesFor extracts a ticker's column, dropping non-finite observations.
// The remaining series must be strictly time-ordered and positive.
func seriesFor(data models.Table, ticker, key string) (models.PriceSeries, error) {
	bars, ok := data[ticker]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("%w: no data for %s", models.ErrNotFound, ticker)
	}
	series, err := bars.Series(key)
	if err != nil {
		return nil, err
	}
	series = series.Finite()
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", ticker, key, err)
	}
	return series, nil
}

// unusableSeries reports errors that disqualify one ticker without failing a batch
func unusableSeries(err error) bool {
	return errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrEmptySeries) ||
		errors.Is(err, models.ErrUnsortedSeries) ||
		errors.Is(err, models.ErrNonPositiveValue)
}

func bounds(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func countBars(data models.Table) int {
	n := 0
	for _, bars := range data {
		n += len(bars)
	}
	return n
}

func sortedWindows(windows []int) []int {
	out := append([]int(nil), windows...)
	sort.Ints(out)
	return out
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
