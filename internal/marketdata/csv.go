package marketdata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/gauger/internal/models"
)

const csvSourceName = "csv"

var csvDateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

// CSVProvider reads <dir>/<TICKER>.csv files with a
// Date,Open,High,Low,Close,Volume header
type CSVProvider struct {
	dir    string
	logger *logrus.Logger
}

// NewCSVProvider creates a provider over a directory of per-ticker files
func NewCSVProvider(dir string, logger *logrus.Logger) *CSVProvider {
	if logger == nil {
		logger = logrus.New()
	}
	return &CSVProvider{dir: dir, logger: logger}
}

// Name returns the data source name
func (c *CSVProvider) Name() string {
	return csvSourceName
}

// ListAllTickers returns the stem of every .csv file in the directory, sorted
func (c *CSVProvider) ListAllTickers(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, NewDataSourceError(csvSourceName, ErrCodeNotFound, "cannot read directory "+c.dir, err)
	}

	var tickers []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		tickers = append(tickers, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
	}
	sort.Strings(tickers)
	return tickers, nil
}

// FetchAll reads every file in the directory
func (c *CSVProvider) FetchAll(ctx context.Context, start, end time.Time) (models.Table, []string, error) {
	return fetchAll(ctx, c, start, end)
}

// Fetch reads the files for the given tickers. Missing files are skipped.
func (c *CSVProvider) Fetch(ctx context.Context, tickers []string, start, end time.Time) (models.Table, error) {
	table := make(models.Table, len(tickers))
	for _, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		bars, err := c.readFile(filepath.Join(c.dir, ticker+".csv"), start, end)
		if errors.Is(err, os.ErrNotExist) {
			c.logger.WithFields(logrus.Fields{
				"source": csvSourceName,
				"ticker": ticker,
			}).Warn("No price file for ticker")
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(bars) > 0 {
			table[ticker] = bars
		}
	}
	return table, nil
}

func (c *CSVProvider) readFile(path string, start, end time.Time) (models.Bars, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := parseBars(f, start, end)
	if err != nil {
		return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, filepath.Base(path), err)
	}
	return bars, nil
}

// parseBars reads CSV rows within [start, end] by calendar day. Empty or
// unparsable numeric cells become NaN so the caller's incomplete-row drop
// removes them.
func parseBars(r io.Reader, start, end time.Time) (models.Bars, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	from := start.UTC().Truncate(24 * time.Hour)
	to := end.UTC().Truncate(24 * time.Hour)

	var bars models.Bars
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseDate(record[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		day := ts.Truncate(24 * time.Hour)
		if day.Before(from) || day.After(to) {
			continue
		}

		bars = append(bars, models.Bar{
			Time:   day,
			Open:   parseCell(record, cols["open"]),
			High:   parseCell(record, cols["high"]),
			Low:    parseCell(record, cols["low"]),
			Close:  parseCell(record, cols["close"]),
			Volume: parseCell(record, cols["volume"]),
		})
	}
	bars.Sort()
	return dedupeDays(bars), nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close", "volume"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidData, required)
		}
	}
	return cols, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable date %q", ErrInvalidData, s)
}

func parseCell(record []string, i int) float64 {
	if i >= len(record) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
