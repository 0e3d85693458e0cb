package service

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gauger/internal/marketdata"
	"github.com/yourusername/gauger/internal/metrics"
	"github.com/yourusername/gauger/internal/models"
	"github.com/yourusername/gauger/internal/statistics"
)

var (
	testStart = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	testNow   = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
)

// fakeProvider serves a fixed table regardless of the requested range
type fakeProvider struct {
	table     models.Table
	universe  []string
	err       error
	lastStart time.Time
	lastEnd   time.Time
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ListAllTickers(ctx context.Context) ([]string, error) {
	return f.universe, nil
}

func (f *fakeProvider) FetchAll(ctx context.Context, start, end time.Time) (models.Table, []string, error) {
	table, err := f.Fetch(ctx, f.universe, start, end)
	return table, f.universe, err
}

func (f *fakeProvider) Fetch(ctx context.Context, tickers []string, start, end time.Time) (models.Table, error) {
	f.lastStart, f.lastEnd = start, end
	if f.err != nil {
		return nil, f.err
	}
	out := make(models.Table)
	for _, ticker := range tickers {
		if bars, ok := f.table[ticker]; ok {
			out[ticker] = append(models.Bars(nil), bars...)
		}
	}
	return out, nil
}

func syntheticBars(seed int64, n int, mean float64) models.Bars {
	rng := rand.New(rand.NewSource(seed))
	bars := make(models.Bars, n)
	for i := range bars {
		price := mean + rng.NormFloat64()*mean*0.02
		bars[i] = models.Bar{
			Time:   testStart.AddDate(0, 0, i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: float64(1000 + i),
		}
	}
	return bars
}

func newTestAnalyzer(p marketdata.Provider) *Analyzer {
	return NewAnalyzer(p, nil, WithClock(func() time.Time { return testNow }))
}

func TestWinRatesAll(t *testing.T) {
	provider := &fakeProvider{
		universe: []string{"SPY", "NEW"},
		table: models.Table{
			"SPY": syntheticBars(1, 300, 400),
			"NEW": syntheticBars(2, 60, 20),
		},
	}
	analyzer := newTestAnalyzer(provider)

	table, err := analyzer.WinRatesAll(context.Background(), "1y", "", "")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2023, 6, 3, 0, 0, 0, 0, time.UTC), provider.lastStart)
	assert.Equal(t, []int{20, 50, 100, 200}, table.Windows)
	assert.Equal(t, []string{"SPY", "NEW"}, table.Tickers)

	for _, window := range table.Windows {
		v, ok := table.Get("SPY", window)
		require.True(t, ok, "window %d", window)
		assert.Greater(t, v, -0.05)
		assert.Less(t, v, 1.05)
	}

	_, ok := table.Get("NEW", 50)
	assert.True(t, ok)
	_, ok = table.Get("NEW", 100)
	assert.False(t, ok, "too short for window 100")
	_, ok = table.Get("NEW", 200)
	assert.False(t, ok)
	assert.Equal(t, 2, table.Skipped)

	rows := table.Rows()
	require.Len(t, rows, 6)
	assert.Equal(t, "SPY", rows[0].Ticker)
	assert.Equal(t, 20, rows[0].Window)
	assert.Equal(t, 200, rows[3].Window)
	assert.Equal(t, "NEW", rows[4].Ticker)
	assert.Equal(t, testStart.AddDate(0, 0, 299), rows[0].AsOf)
}

func TestWinRatesAllMatchesStatistics(t *testing.T) {
	bars := syntheticBars(3, 250, 100)
	provider := &fakeProvider{universe: []string{"QQQ"}, table: models.Table{"QQQ": bars}}
	analyzer := newTestAnalyzer(provider)

	table, err := analyzer.WinRatesAll(context.Background(), "2023-01-01", "2024-01-01", models.KeyClose)
	require.NoError(t, err)

	series, err := bars.Series(models.KeyClose)
	require.NoError(t, err)
	want, err := statistics.WinRate(series, 50)
	require.NoError(t, err)

	got, ok := table.Get("QQQ", 50)
	require.True(t, ok)
	assert.InDelta(t, want, got, 1e-12)
}

func TestWinRatesAllSkipsMissingTicker(t *testing.T) {
	provider := &fakeProvider{
		universe: []string{"SPY", "GONE"},
		table:    models.Table{"SPY": syntheticBars(4, 220, 50)},
	}

	table, err := newTestAnalyzer(provider).WinRatesAll(context.Background(), "max", "", "")
	require.NoError(t, err)
	assert.Equal(t, 4, table.Skipped)
	assert.Len(t, table.Rows(), 4)
}

func TestWinRatesAllSkipsMalformedSeries(t *testing.T) {
	zero := syntheticBars(16, 220, 50)
	zero[100].Close = 0
	unsorted := syntheticBars(17, 220, 50)
	unsorted[10], unsorted[11] = unsorted[11], unsorted[10]

	provider := &fakeProvider{
		universe: []string{"SPY", "ZERO", "SWAP"},
		table: models.Table{
			"SPY":  syntheticBars(4, 220, 50),
			"ZERO": zero,
			"SWAP": unsorted,
		},
	}
	analyzer := newTestAnalyzer(provider)

	table, err := analyzer.WinRatesAll(context.Background(), "max", "", "")
	require.NoError(t, err)
	assert.Equal(t, 8, table.Skipped)
	assert.Len(t, table.Rows(), 4)
	_, ok := table.Get("ZERO", 20)
	assert.False(t, ok)

	_, err = analyzer.TickerPercentile(context.Background(), "ZERO", 20, "max")
	assert.ErrorIs(t, err, models.ErrNonPositiveValue)
	_, err = analyzer.TickerDistribution(context.Background(), "SWAP", 20, "max", 100, 0)
	assert.ErrorIs(t, err, models.ErrUnsortedSeries)
}

func TestWinRatesAllErrors(t *testing.T) {
	provider := &fakeProvider{universe: []string{"SPY"}}
	analyzer := newTestAnalyzer(provider)

	_, err := analyzer.WinRatesAll(context.Background(), "forever", "", "")
	assert.ErrorIs(t, err, marketdata.ErrInvalidPeriod)

	provider.err = marketdata.NewDataSourceError("fake", marketdata.ErrCodeNetworkError, "down", nil)
	_, err = analyzer.WinRatesAll(context.Background(), "1y", "", "")
	var dsErr marketdata.DataSourceError
	assert.True(t, errors.As(err, &dsErr))

	provider.err = nil
	provider.table = models.Table{"SPY": syntheticBars(5, 30, 10)}
	_, err = analyzer.WinRatesAll(context.Background(), "1y", "", "Adj Close")
	assert.ErrorIs(t, err, models.ErrUnknownColumn)
}

func TestStockDataWithMovingAverages(t *testing.T) {
	spy := syntheticBars(6, 300, 400)
	qqq := syntheticBars(7, 300, 300)
	qqq[250].Close = math.NaN()

	provider := &fakeProvider{table: models.Table{"SPY": spy, "QQQ": qqq}}
	analyzer := newTestAnalyzer(provider)

	frames, err := analyzer.StockData(context.Background(), []string{"SPY", "QQQ", "NONE"}, "2023-01-01", "2024-12-31", true)
	require.NoError(t, err)
	require.Contains(t, frames, "SPY")
	assert.NotContains(t, frames, "NONE")

	frame := frames["SPY"]
	assert.Equal(t, []string{
		"price", "volume",
		"price_ratio_20ma", "price_20ma",
		"price_ratio_50ma", "price_50ma",
		"price_ratio_100ma", "price_100ma",
		"price_ratio_200ma", "price_200ma",
	}, frame.Columns)

	// 200-day window leaves 101 rows, minus the day dropped for QQQ
	assert.Equal(t, 100, frame.Len())
	assert.Equal(t, frames["QQQ"].Len(), frame.Len())

	last := frame.Len() - 1
	price := frame.Data["price"][last]
	assert.InDelta(t, price/frame.Data["price_20ma"][last], frame.Data["price_ratio_20ma"][last], 1e-12)
	assert.Equal(t, spy[299].Close, price)
}

func TestStockDataWithoutMovingAverages(t *testing.T) {
	provider := &fakeProvider{table: models.Table{"SPY": syntheticBars(8, 30, 400)}}

	frames, err := newTestAnalyzer(provider).StockData(context.Background(), []string{"SPY"}, "6mo", "", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "volume"}, frames["SPY"].Columns)
	assert.Equal(t, 30, frames["SPY"].Len())
}

func TestAllStockData(t *testing.T) {
	provider := &fakeProvider{
		universe: []string{"A", "B"},
		table:    models.Table{"A": syntheticBars(9, 40, 10), "B": syntheticBars(10, 40, 20)},
	}

	frames, err := newTestAnalyzer(provider).AllStockData(context.Background(), "1y", "", false)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
}

func TestTickerPercentile(t *testing.T) {
	provider := &fakeProvider{table: models.Table{"TLT": syntheticBars(11, 200, 90)}}
	analyzer := newTestAnalyzer(provider)

	result, err := analyzer.TickerPercentile(context.Background(), "TLT", 20, "1y")
	require.NoError(t, err)
	assert.Len(t, result.Dates, 181)
	assert.InDelta(t, result.WinRate*100, result.Percentile, 1e-12)
	assert.False(t, metrics.WinRate.DeleteLabelValues("TLT", "20"), "ad hoc lookups must not add ticker gauge series")

	_, err = analyzer.TickerPercentile(context.Background(), "", 20, "1y")
	assert.ErrorIs(t, err, models.ErrTickerRequired)

	_, err = analyzer.TickerPercentile(context.Background(), "NOPE", 20, "1y")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = analyzer.TickerPercentile(context.Background(), "TLT", 0, "1y")
	assert.ErrorIs(t, err, statistics.ErrConfiguration)

	_, err = analyzer.TickerPercentile(context.Background(), "TLT", 500, "1y")
	assert.ErrorIs(t, err, statistics.ErrInvalidSample)
}

func TestTickerBetSchedule(t *testing.T) {
	provider := &fakeProvider{table: models.Table{"GLD": syntheticBars(12, 300, 180)}}
	analyzer := newTestAnalyzer(provider)

	schedule, err := analyzer.TickerBetSchedule(context.Background(), "GLD", 20, "1y", statistics.DefaultBetConfig())
	require.NoError(t, err)
	require.NotEmpty(t, schedule)
	assert.Equal(t, statistics.BetThreshold{Ratio: 1, Bet: 1.0 / 128}, schedule[0])
	for i := 1; i < schedule.Len(); i++ {
		assert.LessOrEqual(t, schedule[i].Ratio, schedule[i-1].Ratio)
		assert.Equal(t, schedule[i-1].Bet*2, schedule[i].Bet)
	}

	bad := statistics.BetConfig{MinBet: 0.01, MaxBet: 0.25, NSamplesIntegral: 1000}
	_, err = analyzer.TickerBetSchedule(context.Background(), "GLD", 20, "1y", bad)
	var cfgErr *statistics.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Error(), "power of 2")
}

func TestTickerDistribution(t *testing.T) {
	provider := &fakeProvider{table: models.Table{"NVDA": syntheticBars(13, 260, 120)}}

	result, err := newTestAnalyzer(provider).TickerDistribution(context.Background(), "NVDA", 50, "1y", 200, 0)
	require.NoError(t, err)
	assert.Len(t, result.X, 200)
	assert.Len(t, result.Y, 200)
	require.GreaterOrEqual(t, result.RatioIndex, 0)
	assert.InDelta(t, result.Ratio, result.X[result.RatioIndex], (result.X[199]-result.X[0])/199)

	thresholded, err := newTestAnalyzer(provider).TickerDistribution(context.Background(), "NVDA", 50, "1y", 200, 1)
	require.NoError(t, err)
	assert.Less(t, len(thresholded.X), 200)
	for _, y := range thresholded.Y {
		assert.Greater(t, y, 1.0)
	}
}

func TestStakePlanner(t *testing.T) {
	schedule := statistics.BetSchedule{
		{Ratio: 1, Bet: 1.0 / 128},
		{Ratio: 0.9, Bet: 1.0 / 64},
		{Ratio: 0.8, Bet: 1.0 / 32},
	}
	planner, err := NewStakePlanner(decimal.NewFromInt(1000), schedule)
	require.NoError(t, err)

	stakes := planner.Stakes()
	require.Len(t, stakes, 3)
	assert.Equal(t, "7.81", stakes[0].Amount.StringFixed(2))
	assert.Equal(t, "15.63", stakes[1].Amount.StringFixed(2))
	assert.Equal(t, "31.25", stakes[2].Amount.StringFixed(2))

	assert.Equal(t, "15.63", planner.StakeFor(0.85).StringFixed(2))
	assert.Equal(t, "31.25", planner.StakeFor(0.5).StringFixed(2))
	assert.True(t, planner.StakeFor(1.2).IsZero())
	assert.Equal(t, "54.69", planner.Total().StringFixed(2))

	_, err = NewStakePlanner(decimal.NewFromInt(-1), schedule)
	assert.Error(t, err)
}

// MockSnapshotRepository mocks the snapshot repository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) SaveBatch(ctx context.Context, snapshots []*models.WinRateSnapshot) error {
	return m.Called(ctx, snapshots).Error(0)
}

func (m *MockSnapshotRepository) GetLatest(ctx context.Context, ticker string, window int) (*models.WinRateSnapshot, error) {
	args := m.Called(ctx, ticker, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WinRateSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) GetByTicker(ctx context.Context, ticker string, start, end time.Time) ([]*models.WinRateSnapshot, error) {
	args := m.Called(ctx, ticker, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WinRateSnapshot), args.Error(1)
}

func (m *MockSnapshotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func TestSnapshotServiceRun(t *testing.T) {
	provider := &fakeProvider{
		universe: []string{"SPY"},
		table:    models.Table{"SPY": syntheticBars(14, 250, 400)},
	}
	repo := new(MockSnapshotRepository)
	repo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(s []*models.WinRateSnapshot) bool {
		return len(s) == 4 && s[0].Ticker == "SPY" && s[0].Window == 20 && s[0].Period == "10y"
	})).Return(nil)

	svc := NewSnapshotService(newTestAnalyzer(provider), repo, "10y", models.KeyClose, nil)

	table, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, table.Rows(), 4)
	repo.AssertExpectations(t)
}

func TestSnapshotServicePersistError(t *testing.T) {
	provider := &fakeProvider{
		universe: []string{"SPY"},
		table:    models.Table{"SPY": syntheticBars(15, 250, 400)},
	}
	repo := new(MockSnapshotRepository)
	repo.On("SaveBatch", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	svc := NewSnapshotService(newTestAnalyzer(provider), repo, "10y", "", nil)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSnapshotServiceLatest(t *testing.T) {
	repo := new(MockSnapshotRepository)
	snap := models.NewWinRateSnapshot("SPY", 20, testNow, 1.01, 0.6, "10y")
	repo.On("GetLatest", mock.Anything, "SPY", 20).Return(snap, nil)
	repo.On("GetLatest", mock.Anything, "QQQ", 20).Return(nil, models.ErrNotFound)

	svc := NewSnapshotService(nil, repo, "10y", "", nil)

	got, err := svc.Latest(context.Background(), "SPY", 20)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)

	_, err = svc.Latest(context.Background(), "QQQ", 20)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Latest(context.Background(), "", 20)
	assert.ErrorIs(t, err, models.ErrTickerRequired)
}

func TestSnapshotServiceHistory(t *testing.T) {
	repo := new(MockSnapshotRepository)
	start := testNow.AddDate(0, -1, 0)
	rows := []*models.WinRateSnapshot{
		models.NewWinRateSnapshot("SPY", 20, start, 1.01, 0.6, "10y"),
		models.NewWinRateSnapshot("SPY", 50, testNow, 0.99, 0.4, "10y"),
	}
	repo.On("GetByTicker", mock.Anything, "SPY", start, testNow).Return(rows, nil)

	svc := NewSnapshotService(nil, repo, "10y", "", nil)

	got, err := svc.History(context.Background(), "SPY", start, testNow)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	repo.AssertExpectations(t)

	_, err = svc.History(context.Background(), "", start, testNow)
	assert.ErrorIs(t, err, models.ErrTickerRequired)

	_, err = svc.History(context.Background(), "SPY", testNow, start)
	assert.ErrorIs(t, err, marketdata.ErrInvalidPeriod)
}

func TestSnapshotsConversion(t *testing.T) {
	table := &WinRateTable{
		Tickers: []string{"A"},
		Windows: []int{20, 50},
		Values:  map[string]map[int]float64{"A": {50: 0.4}},
		Ratios:  map[string]map[int]float64{"A": {50: 0.98}},
		AsOf:    map[string]time.Time{"A": testNow},
	}

	snaps := Snapshots(table, "5y", testNow)
	require.Len(t, snaps, 1)
	assert.Equal(t, 50, snaps[0].Window)
	assert.Equal(t, 0.98, snaps[0].Ratio)
	assert.Equal(t, testNow, snaps[0].ComputedAt)
}
