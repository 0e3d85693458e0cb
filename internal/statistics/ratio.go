package statistics

import (
	"github.com/yourusername/gauger/internal/models"
)

// RollingRatio is a price-to-moving-average ratio series together with the
// trailing mean it was computed from. Both are aligned on the same timestamps.
type RollingRatio struct {
	Ratio     models.PriceSeries
	MovingAvg models.PriceSeries
}

// DivideByRollingMA divides each price by the mean of the window prices ending
// at it. The first window-1 positions have no trailing mean and are dropped, so
// the result has len(series)-window+1 points, or none when the series is shorter
// than the window.
func DivideByRollingMA(series models.PriceSeries, window int) models.PriceSeries {
	return RollingMA(series, window).Ratio
}

// RollingMA computes the ratio series and returns the trailing mean alongside it
func RollingMA(series models.PriceSeries, window int) RollingRatio {
	if window < 1 || len(series) < window {
		return RollingRatio{Ratio: models.PriceSeries{}, MovingAvg: models.PriceSeries{}}
	}

	n := len(series) - window + 1
	ratio := make(models.PriceSeries, n)
	avg := make(models.PriceSeries, n)
	for i := 0; i < n; i++ {
		end := i + window - 1
		// Summed per window: a running sum drifts and breaks ratio == 1 for window 1.
		sum := 0.0
		for _, p := range series[i : end+1] {
			sum += p.Value
		}
		mean := sum / float64(window)
		ratio[i] = models.PricePoint{Time: series[end].Time, Value: series[end].Value / mean}
		avg[i] = models.PricePoint{Time: series[end].Time, Value: mean}
	}
	return RollingRatio{Ratio: ratio, MovingAvg: avg}
}
