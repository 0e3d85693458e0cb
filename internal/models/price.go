package models

import (
	"fmt"
	"math"
	"time"
)

// PricePoint is a single timestamped observation of a price or volume
type PricePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// PriceSeries is a strictly time-ordered sequence of observations
type PriceSeries []PricePoint

// Validate checks ordering and positivity
func (s PriceSeries) Validate() error {
	if len(s) == 0 {
		return ErrEmptySeries
	}
	for i, p := range s {
		if !(p.Value > 0) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("%w: index %d value %v", ErrNonPositiveValue, i, p.Value)
		}
		if i > 0 && !p.Time.After(s[i-1].Time) {
			return fmt.Errorf("%w: index %d at %s", ErrUnsortedSeries, i, p.Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Values returns the observation values in order
func (s PriceSeries) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Times returns the observation timestamps in order
func (s PriceSeries) Times() []time.Time {
	times := make([]time.Time, len(s))
	for i, p := range s {
		times[i] = p.Time
	}
	return times
}

// Last returns the most recent observation
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// Finite returns a copy without NaN or infinite observations
func (s PriceSeries) Finite() PriceSeries {
	out := make(PriceSeries, 0, len(s))
	for _, p := range s {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		out = append(out, p)
	}
	return out
}
