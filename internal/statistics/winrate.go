package statistics

import (
	"time"

	"github.com/yourusername/gauger/internal/models"
)

// PDFRatio estimates the density of the price-to-moving-average ratio
func PDFRatio(series models.PriceSeries, window int, opts ...KDEOption) (Density, error) {
	ratio := DivideByRollingMA(series, window)
	return NewGaussianKDE(ratio.Values(), opts...)
}

// WinRate returns the probability mass of the ratio density between zero and
// the latest ratio: the share of history in which the price sat at or below
// its current position relative to the moving average. The value is not
// clamped, so integration error can push it slightly outside [0, 1].
func WinRate(series models.PriceSeries, window int) (float64, error) {
	result, err := Percentile(series, window)
	if err != nil {
		return 0, err
	}
	return result.WinRate, nil
}

// PercentileResult describes where the latest ratio sits in its history
type PercentileResult struct {
	Dates      []time.Time `json:"date"`
	Ratio      float64     `json:"price_ratio"`
	WinRate    float64     `json:"win_rate"`
	Percentile float64     `json:"price_ratio_percentile"`
}

// Percentile computes the win rate along with the ratio series dates and the
// latest ratio
func Percentile(series models.PriceSeries, window int) (PercentileResult, error) {
	ratio := DivideByRollingMA(series, window)
	p, err := NewGaussianKDE(ratio.Values())
	if err != nil {
		return PercentileResult{}, err
	}

	last, _ := ratio.Last()
	winRate, err := Integral(p, 0, last.Value, DefaultIntegralSamples)
	if err != nil {
		return PercentileResult{}, err
	}

	return PercentileResult{
		Dates:      ratio.Times(),
		Ratio:      last.Value,
		WinRate:    winRate,
		Percentile: winRate * 100,
	}, nil
}
