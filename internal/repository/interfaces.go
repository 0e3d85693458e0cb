package repository

import (
	"context"
	"time"

	"github.com/yourusername/gauger/internal/models"
)

// WinRateSnapshotRepository defines the interface for win-rate snapshot access
type WinRateSnapshotRepository interface {
	SaveBatch(ctx context.Context, snapshots []*models.WinRateSnapshot) error
	GetLatest(ctx context.Context, ticker string, window int) (*models.WinRateSnapshot, error)
	GetByTicker(ctx context.Context, ticker string, start, end time.Time) ([]*models.WinRateSnapshot, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
