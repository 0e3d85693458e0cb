package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	applog "github.com/yourusername/gauger/internal/logger"
	"github.com/yourusername/gauger/internal/marketdata"
	"github.com/yourusername/gauger/internal/metrics"
	"github.com/yourusername/gauger/internal/models"
	"github.com/yourusername/gauger/internal/repository"
)

// SnapshotService computes the universe win-rate table and stores it
type SnapshotService struct {
	analyzer *Analyzer
	repo     repository.WinRateSnapshotRepository
	period   string
	key      string
	logger   *logrus.Logger
	dataLog  *applog.DataLogger
}

// NewSnapshotService creates a snapshot service over period, e.g. 10y
func NewSnapshotService(analyzer *Analyzer, repo repository.WinRateSnapshotRepository, period, key string, logger *logrus.Logger) *SnapshotService {
	if logger == nil {
		logger = applog.NewDiscardLogger()
	}
	return &SnapshotService{
		analyzer: analyzer,
		repo:     repo,
		period:   period,
		key:      key,
		logger:   logger,
		dataLog:  applog.NewDataLogger(logger),
	}
}

// Run computes and persists one snapshot per available ticker/window pair
func (s *SnapshotService) Run(ctx context.Context) (*WinRateTable, error) {
	table, err := s.analyzer.WinRatesAll(ctx, s.period, "", s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to compute win rates: %w", err)
	}

	if err := s.Persist(ctx, table); err != nil {
		return nil, err
	}
	return table, nil
}

// Persist stores the rows of an already computed table
func (s *SnapshotService) Persist(ctx context.Context, table *WinRateTable) error {
	snapshots := Snapshots(table, s.period, time.Now().UTC())
	if len(snapshots) == 0 {
		s.logger.Warn("No win rates to persist")
		return nil
	}

	if err := s.repo.SaveBatch(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to persist snapshots: %w", err)
	}

	metrics.RecordSnapshotsPersisted(len(snapshots))
	s.dataLog.LogSnapshotsPersisted(len(snapshots), s.period)
	return nil
}

// Latest returns the newest stored snapshot for a ticker and window
func (s *SnapshotService) Latest(ctx context.Context, ticker string, window int) (*models.WinRateSnapshot, error) {
	if ticker == "" {
		return nil, models.ErrTickerRequired
	}
	return s.repo.GetLatest(ctx, ticker, window)
}

// History returns stored snapshots for a ticker with as-of dates in [start, end]
func (s *SnapshotService) History(ctx context.Context, ticker string, start, end time.Time) ([]*models.WinRateSnapshot, error) {
	if ticker == "" {
		return nil, models.ErrTickerRequired
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", marketdata.ErrInvalidPeriod,
			start.Format(marketdata.DateLayout), end.Format(marketdata.DateLayout))
	}
	return s.repo.GetByTicker(ctx, ticker, start, end)
}

// Snapshots converts table rows into snapshot records stamped computedAt
func Snapshots(table *WinRateTable, period string, computedAt time.Time) []*models.WinRateSnapshot {
	rows := table.Rows()
	snapshots := make([]*models.WinRateSnapshot, 0, len(rows))
	for _, row := range rows {
		snap := models.NewWinRateSnapshot(row.Ticker, row.Window, row.AsOf, row.Ratio, row.WinRate, period)
		snap.ComputedAt = computedAt
		snapshots = append(snapshots, snap)
	}
	return snapshots
}
