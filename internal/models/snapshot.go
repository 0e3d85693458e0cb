package models

import (
	"time"

	"github.com/google/uuid"
)

// WinRateSnapshot is a persisted win-rate computation for one ticker and window
type WinRateSnapshot struct {
	ID         uuid.UUID `db:"id" json:"id" validate:"required"`
	Ticker     string    `db:"ticker" json:"ticker" validate:"required"`
	Window     int       `db:"window_size" json:"window" validate:"required,gt=0"`
	AsOf       time.Time `db:"as_of" json:"as_of" validate:"required"`
	Ratio      float64   `db:"ratio" json:"ratio"`
	WinRate    float64   `db:"win_rate" json:"win_rate"`
	Period     string    `db:"period" json:"period"`
	ComputedAt time.Time `db:"computed_at" json:"computed_at"`
}

// NewWinRateSnapshot creates a snapshot with a fresh ID
func NewWinRateSnapshot(ticker string, window int, asOf time.Time, ratio, winRate float64, period string) *WinRateSnapshot {
	return &WinRateSnapshot{
		ID:         uuid.New(),
		Ticker:     ticker,
		Window:     window,
		AsOf:       asOf,
		Ratio:      ratio,
		WinRate:    winRate,
		Period:     period,
		ComputedAt: time.Now().UTC(),
	}
}

// Percentile returns the win rate scaled to 0-100
func (s *WinRateSnapshot) Percentile() float64 {
	return s.WinRate * 100
}
