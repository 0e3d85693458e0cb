package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestNewLoggerLevels(t *testing.T) {
	log := NewLoggerForEnvironment("debug", "development")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	_, isText := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)

	log = NewLoggerForEnvironment("not-a-level", "production")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, isJSON := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}

func TestAnalysisLoggerWinRate(t *testing.T) {
	log, buf := setupTestLogger()
	analysisLogger := NewAnalysisLogger(log)

	analysisLogger.LogWinRate("SPY", 20, 0.98, 0.31, 1.5)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "analysis", logEntry["component"])
	assert.Equal(t, "SPY", logEntry["ticker"])
	assert.Equal(t, float64(20), logEntry["window"])
	assert.Equal(t, 0.31, logEntry["win_rate"])
}

func TestAnalysisLoggerSkippedWindow(t *testing.T) {
	log, buf := setupTestLogger()
	analysisLogger := NewAnalysisLogger(log)

	analysisLogger.LogSkippedWindow("CONL", 200, 150, errors.New("at least 2 points are required"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "warning", logEntry["level"])
	assert.Equal(t, "at least 2 points are required", logEntry["reason"])
}

func TestAnalysisLoggerBatch(t *testing.T) {
	log, buf := setupTestLogger()
	analysisLogger := NewAnalysisLogger(log)

	analysisLogger.LogBatchCompleted("win_rates_all", 13, 50, 2, 1234)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "win_rates_all", logEntry["operation"])
	assert.Equal(t, float64(2), logEntry["skipped"])
}

func TestDataLoggerFetch(t *testing.T) {
	log, buf := setupTestLogger()
	dataLogger := NewDataLogger(log)

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	dataLogger.LogFetch("yahoo", 3, start, start.AddDate(1, 0, 0), 756, true)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "market_data", logEntry["component"])
	assert.Equal(t, "2024-01-02", logEntry["start_date"])
	assert.Equal(t, true, logEntry["cached"])
}

func TestDataLoggerSnapshots(t *testing.T) {
	log, buf := setupTestLogger()
	dataLogger := NewDataLogger(log)

	dataLogger.LogSnapshotsPersisted(52, "10y")

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(52), logEntry["snapshots"])
}

func TestDiscardLogger(t *testing.T) {
	log := NewDiscardLogger()
	assert.NotPanics(t, func() { log.Info("dropped") })
}
