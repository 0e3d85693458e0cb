// Package logger provides market data logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DataLogger records market data fetches and snapshot persistence.
type DataLogger struct {
	*logrus.Entry
}

// NewDataLogger creates a new data logger.
func NewDataLogger(baseLogger *logrus.Logger) *DataLogger {
	return &DataLogger{
		Entry: baseLogger.WithField("component", "market_data"),
	}
}

// LogFetch logs a completed history fetch.
func (dl *DataLogger) LogFetch(source string, tickers int, start, end time.Time, bars int, cached bool) {
	dl.WithFields(logrus.Fields{
		"source":     source,
		"tickers":    tickers,
		"start_date": start.Format("2006-01-02"),
		"end_date":   end.Format("2006-01-02"),
		"bars":       bars,
		"cached":     cached,
	}).Debug("History fetched")
}

// LogFetchFailed logs a failed fetch for one ticker.
func (dl *DataLogger) LogFetchFailed(source, ticker string, err error) {
	dl.WithFields(logrus.Fields{
		"source": source,
		"ticker": ticker,
	}).WithError(err).Warn("History fetch failed")
}

// LogSnapshotsPersisted logs a batch of stored win-rate snapshots.
func (dl *DataLogger) LogSnapshotsPersisted(count int, period string) {
	dl.WithFields(logrus.Fields{
		"snapshots": count,
		"period":    period,
	}).Info("Win rate snapshots persisted")
}
