// Package logger provides analysis-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// AnalysisLogger provides dedicated logging for ratio density computations.
type AnalysisLogger struct {
	*logrus.Entry
}

// NewAnalysisLogger creates a new analysis logger.
func NewAnalysisLogger(baseLogger *logrus.Logger) *AnalysisLogger {
	return &AnalysisLogger{
		Entry: baseLogger.WithField("component", "analysis"),
	}
}

// LogWinRate logs a computed win rate.
func (al *AnalysisLogger) LogWinRate(ticker string, window int, ratio, winRate float64, durationMs float64) {
	al.WithFields(logrus.Fields{
		"ticker":      ticker,
		"window":      window,
		"price_ratio": ratio,
		"win_rate":    winRate,
		"duration_ms": durationMs,
	}).Debug("Win rate computed")
}

// LogSkippedWindow logs a ticker/window pair that could not be evaluated.
func (al *AnalysisLogger) LogSkippedWindow(ticker string, window, points int, err error) {
	al.WithFields(logrus.Fields{
		"ticker": ticker,
		"window": window,
		"points": points,
		"reason": err.Error(),
	}).Warn("Window skipped")
}

// LogBetSchedule logs a derived martingale schedule.
func (al *AnalysisLogger) LogBetSchedule(ticker string, window int, minBet, maxBet float64, thresholds int) {
	al.WithFields(logrus.Fields{
		"ticker":     ticker,
		"window":     window,
		"min_bet":    minBet,
		"max_bet":    maxBet,
		"thresholds": thresholds,
	}).Info("Bet schedule derived")
}

// LogBatchCompleted logs the end of a multi-ticker run.
func (al *AnalysisLogger) LogBatchCompleted(operation string, tickers, computed, skipped int, durationMs float64) {
	al.WithFields(logrus.Fields{
		"operation":   operation,
		"tickers":     tickers,
		"computed":    computed,
		"skipped":     skipped,
		"duration_ms": durationMs,
	}).Info("Batch completed")
}
