package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/yourusername/gauger/internal/models"
)

const (
	yahooSourceName     = "yahoo"
	yahooChartPath      = "/v8/finance/chart/"
	defaultFetchWorkers = 4
)

// YahooProvider reads daily bars from the Yahoo Finance chart API
type YahooProvider struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	universe   []string
	workers    int
	logger     *logrus.Logger
}

// NewYahooProvider creates a chart API provider. universe is returned by
// ListAllTickers.
func NewYahooProvider(httpClient *RateLimitedHTTPClient, baseURL string, universe []string, logger *logrus.Logger) *YahooProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &YahooProvider{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		universe:   append([]string(nil), universe...),
		workers:    defaultFetchWorkers,
		logger:     logger,
	}
}

// Name returns the data source name
func (y *YahooProvider) Name() string {
	return yahooSourceName
}

// ListAllTickers returns the configured universe
func (y *YahooProvider) ListAllTickers(ctx context.Context) ([]string, error) {
	return append([]string(nil), y.universe...), nil
}

// FetchAll retrieves bars for the configured universe
func (y *YahooProvider) FetchAll(ctx context.Context, start, end time.Time) (models.Table, []string, error) {
	return fetchAll(ctx, y, start, end)
}

// Fetch retrieves bars for each ticker concurrently. A ticker that fails is
// logged and left out; an error is returned only when every ticker fails.
func (y *YahooProvider) Fetch(ctx context.Context, tickers []string, start, end time.Time) (models.Table, error) {
	if len(tickers) == 0 {
		return models.Table{}, nil
	}

	var (
		mu    sync.Mutex
		table = make(models.Table, len(tickers))
		errs  *multierror.Error
	)

	p := pool.New().WithMaxGoroutines(y.workers)
	for _, ticker := range tickers {
		p.Go(func() {
			bars, err := y.fetchTicker(ctx, ticker, start, end)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				y.logger.WithFields(logrus.Fields{
					"source": yahooSourceName,
					"ticker": ticker,
				}).WithError(err).Warn("Failed to fetch ticker history")
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", ticker, err))
				return
			}
			if len(bars) > 0 {
				table[ticker] = bars
			}
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(table) == 0 && errs.ErrorOrNil() != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeUnknown, "all tickers failed", errs.ErrorOrNil())
	}
	return table, nil
}

func (y *YahooProvider) fetchTicker(ctx context.Context, ticker string, start, end time.Time) (models.Bars, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	// end is inclusive at day granularity
	params.Set("period2", fmt.Sprintf("%d", end.AddDate(0, 0, 1).Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")

	endpoint := y.baseURL + yahooChartPath + url.PathEscape(ticker) + "?" + params.Encode()

	resp, err := y.httpClient.Get(ctx, endpoint)
	if err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, "unknown ticker "+ticker, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeRateLimitExceeded, "rate limited", ErrRateLimitExceeded)
	case resp.StatusCode >= 500:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeServerError, fmt.Sprintf("status %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeUnknown, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeInvalidData, "failed to decode chart", err)
	}
	return chart.bars(ticker)
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// bars converts the chart payload into daily bars stamped at UTC midnight of
// the exchange-local trading day. Null fields become NaN.
func (c chartResponse) bars(ticker string) (models.Bars, error) {
	if c.Chart.Error != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, c.Chart.Error.Description, ErrNotFound)
	}
	if len(c.Chart.Result) == 0 {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, "empty result for "+ticker, ErrNotFound)
	}

	res := c.Chart.Result[0]
	if len(res.Timestamp) == 0 {
		return models.Bars{}, nil
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeInvalidData, "missing quote indicators", ErrInvalidData)
	}
	q := res.Indicators.Quote[0]

	bars := make(models.Bars, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		day := time.Unix(ts+res.Meta.GMTOffset, 0).UTC().Truncate(24 * time.Hour)
		bars = append(bars, models.Bar{
			Time:   day,
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  at(q.Close, i),
			Volume: at(q.Volume, i),
		})
	}
	bars.Sort()
	return dedupeDays(bars), nil
}

func at(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return math.NaN()
	}
	return *values[i]
}

// dedupeDays keeps the last bar of each day; the chart API can append a live
// bar that shares the date of the final daily bar.
func dedupeDays(bars models.Bars) models.Bars {
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
