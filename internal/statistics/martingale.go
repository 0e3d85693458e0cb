package statistics

import (
	"math"

	"github.com/yourusername/gauger/internal/models"
)

// Default martingale parameters
const (
	DefaultMinBet = 1.0 / 128
	DefaultMaxBet = 1.0 / 4
	// DefaultPDFMaxBet is the ceiling used when building straight from a density
	DefaultPDFMaxBet = 1.0 / 2

	// anchorRatio is the ratio at which the price equals its moving average
	anchorRatio  = 1.0
	betTolerance = 1e-6
)

// BetConfig bounds a martingale schedule
type BetConfig struct {
	MinBet           float64 `json:"min_bet" yaml:"min_bet"`
	MaxBet           float64 `json:"max_bet" yaml:"max_bet"`
	NSamplesIntegral int     `json:"n_samples_integral" yaml:"n_samples_integral"`
}

// DefaultBetConfig returns the schedule bounds used for price series
func DefaultBetConfig() BetConfig {
	return BetConfig{
		MinBet:           DefaultMinBet,
		MaxBet:           DefaultMaxBet,
		NSamplesIntegral: DefaultIntegralSamples,
	}
}

// Doublings returns k such that MaxBet = MinBet * 2^k
func (c BetConfig) Doublings() (int, error) {
	if !(c.MinBet > 0) || math.IsInf(c.MinBet, 0) {
		return 0, &ConfigurationError{Field: "min_bet", Message: "must be positive"}
	}
	if !(c.MaxBet > 0) || math.IsInf(c.MaxBet, 0) {
		return 0, &ConfigurationError{Field: "max_bet", Message: "must be positive"}
	}
	frac, exp := math.Frexp(c.MaxBet / c.MinBet)
	if frac != 0.5 || exp < 1 {
		return 0, &ConfigurationError{Message: "max_bet / min_bet must be a power of 2"}
	}
	return exp - 1, nil
}

// Validate checks the bet bounds and the integration grid
func (c BetConfig) Validate() error {
	if _, err := c.Doublings(); err != nil {
		return err
	}
	if c.NSamplesIntegral < 2 {
		return &ConfigurationError{Field: "n_samples_integral", Message: "must be at least 2"}
	}
	return nil
}

// BetThreshold assigns a bet fraction to ratios at or below Ratio
type BetThreshold struct {
	Ratio float64 `json:"ratio" yaml:"ratio"`
	Bet   float64 `json:"bet" yaml:"bet"`
}

// BetSchedule lists thresholds in scan order: the {1.0, min_bet} anchor first,
// then decreasing ratios with doubling bets. Ratios may repeat in degenerate
// cases, which is why this is a slice and not a map.
type BetSchedule []BetThreshold

// Len returns the number of thresholds
func (s BetSchedule) Len() int {
	return len(s)
}

// Bets returns the bet fractions in schedule order
func (s BetSchedule) Bets() []float64 {
	bets := make([]float64, len(s))
	for i, t := range s {
		bets[i] = t.Bet
	}
	return bets
}

// Map returns the schedule keyed by ratio. Later entries win on duplicate ratios.
func (s BetSchedule) Map() map[float64]float64 {
	m := make(map[float64]float64, len(s))
	for _, t := range s {
		m[t.Ratio] = t.Bet
	}
	return m
}

// BetFor returns the bet of the deepest threshold that is still at or above
// ratio, or zero when ratio lies above every threshold.
func (s BetSchedule) BetFor(ratio float64) float64 {
	bet := 0.0
	for _, t := range s {
		if ratio <= t.Ratio && t.Bet > bet {
			bet = t.Bet
		}
	}
	return bet
}

// BetRatiosMartingaleFromPDF splits the density mass on [0, 1] into k+1
// regions of equal probability, where max_bet = min_bet * 2^k, by scanning
// left from ratio 1. Each time the accumulated mass passes one region's share
// the bet doubles and the crossing ratio is recorded. The overshoot is carried
// into the next region rather than discarded. Scanning stops once the bet would
// exceed max_bet or the grid reaches zero, so a short schedule is possible when
// little mass lies in [0, 1].
func BetRatiosMartingaleFromPDF(p Density, cfg BetConfig) (BetSchedule, error) {
	doublings, err := cfg.Doublings()
	if err != nil {
		return nil, err
	}
	if cfg.NSamplesIntegral < 2 {
		return nil, &ConfigurationError{Field: "n_samples_integral", Message: "must be at least 2"}
	}

	probUnderperform, err := Integral(p, 0, anchorRatio, DefaultIntegralSamples)
	if err != nil {
		return nil, err
	}
	probPerRegion := probUnderperform / float64(doublings+1)

	schedule := BetSchedule{{Ratio: anchorRatio, Bet: cfg.MinBet}}
	bet := 2 * cfg.MinBet
	cumulative := 0.0
	x := linspace(0, anchorRatio, cfg.NSamplesIntegral)
	for i := len(x) - 1; bet < cfg.MaxBet+betTolerance && i > 0; i-- {
		cumulative += (x[i] - x[i-1]) * p.Evaluate(x[i-1])
		if cumulative > probPerRegion {
			schedule = append(schedule, BetThreshold{Ratio: x[i-1], Bet: bet})
			cumulative -= probPerRegion
			bet *= 2
		}
	}

	return schedule, nil
}

// BetRatiosMartingale builds the ratio density of a price series and derives
// its martingale schedule
func BetRatiosMartingale(series models.PriceSeries, window int, cfg BetConfig) (BetSchedule, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := PDFRatio(series, window)
	if err != nil {
		return nil, err
	}
	return BetRatiosMartingaleFromPDF(p, cfg)
}
