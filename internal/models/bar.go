package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Column keys accepted by Bars.Series
const (
	KeyOpen   = "Open"
	KeyHigh   = "High"
	KeyLow    = "Low"
	KeyClose  = "Close"
	KeyVolume = "Volume"
)

// Bar is one OHLCV observation for a ticker
type Bar struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// Bars is a time-ordered OHLCV history
type Bars []Bar

// Series extracts one column as a price series
func (b Bars) Series(key string) (PriceSeries, error) {
	pick, err := barField(key)
	if err != nil {
		return nil, err
	}
	series := make(PriceSeries, len(b))
	for i, bar := range b {
		series[i] = PricePoint{Time: bar.Time, Value: pick(bar)}
	}
	return series, nil
}

// Sort orders bars by time in place
func (b Bars) Sort() {
	sort.Slice(b, func(i, j int) bool { return b[i].Time.Before(b[j].Time) })
}

func barField(key string) (func(Bar) float64, error) {
	switch strings.ToLower(key) {
	case "open":
		return func(b Bar) float64 { return b.Open }, nil
	case "high":
		return func(b Bar) float64 { return b.High }, nil
	case "low":
		return func(b Bar) float64 { return b.Low }, nil
	case "close":
		return func(b Bar) float64 { return b.Close }, nil
	case "volume":
		return func(b Bar) float64 { return b.Volume }, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, key)
	}
}

func (b Bar) complete() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Table holds OHLCV histories keyed by ticker
type Table map[string]Bars

// Tickers returns the table's tickers in sorted order
func (t Table) Tickers() []string {
	tickers := make([]string, 0, len(t))
	for ticker := range t {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	return tickers
}

// DropIncomplete keeps only timestamps where every ticker has a complete bar.
// An empty table or one with no shared timestamps yields empty histories.
func (t Table) DropIncomplete() Table {
	counts := make(map[int64]int)
	for _, bars := range t {
		seen := make(map[int64]bool, len(bars))
		for _, bar := range bars {
			key := bar.Time.UnixNano()
			if bar.complete() && !seen[key] {
				seen[key] = true
				counts[key]++
			}
		}
	}

	out := make(Table, len(t))
	for ticker, bars := range t {
		kept := make(Bars, 0, len(bars))
		for _, bar := range bars {
			if bar.complete() && counts[bar.Time.UnixNano()] == len(t) {
				kept = append(kept, bar)
			}
		}
		out[ticker] = kept
	}
	return out
}
