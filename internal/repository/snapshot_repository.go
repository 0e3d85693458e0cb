package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/gauger/internal/database"
	"github.com/yourusername/gauger/internal/models"
)

const snapshotColumns = "id, ticker, window_size, as_of, ratio, win_rate, period, computed_at"

// PostgresWinRateSnapshotRepository implements WinRateSnapshotRepository for PostgreSQL
type PostgresWinRateSnapshotRepository struct {
	db *database.DB
}

// NewPostgresWinRateSnapshotRepository creates a new snapshot repository
func NewPostgresWinRateSnapshotRepository(db *database.DB) WinRateSnapshotRepository {
	return &PostgresWinRateSnapshotRepository{db: db}
}

// SaveBatch writes snapshots with COPY inside one transaction. Rows already
// stored for the same ticker, window, as-of date and period are replaced.
func (r *PostgresWinRateSnapshotRepository) SaveBatch(ctx context.Context, snapshots []*models.WinRateSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	columns := []string{"id", "ticker", "window_size", "as_of", "ratio", "win_rate", "period", "computed_at"}

	tickers := make([]string, len(snapshots))
	windows := make([]int64, len(snapshots))
	asOf := make([]time.Time, len(snapshots))
	periods := make([]string, len(snapshots))
	rows := make([][]any, len(snapshots))
	for i, s := range snapshots {
		tickers[i], windows[i], asOf[i], periods[i] = s.Ticker, int64(s.Window), s.AsOf, s.Period
		rows[i] = []any{s.ID, s.Ticker, s.Window, s.AsOf, s.Ratio, s.WinRate, s.Period, s.ComputedAt}
	}

	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM win_rate_snapshots
			WHERE (ticker, window_size, as_of, period) IN (
				SELECT * FROM unnest($1::text[], $2::int8[], $3::timestamptz[], $4::text[])
			)
		`, tickers, windows, asOf, periods)
		if err != nil {
			return fmt.Errorf("failed to replace existing snapshots: %w", err)
		}

		count, err := tx.CopyFrom(ctx, pgx.Identifier{"win_rate_snapshots"}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to batch insert win rate snapshots: %w", err)
		}
		if count != int64(len(snapshots)) {
			return fmt.Errorf("inserted %d rows, expected %d", count, len(snapshots))
		}
		return nil
	})
}

// GetLatest retrieves the most recently computed snapshot for a ticker and window
func (r *PostgresWinRateSnapshotRepository) GetLatest(ctx context.Context, ticker string, window int) (*models.WinRateSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM win_rate_snapshots
		WHERE ticker = $1 AND window_size = $2
		ORDER BY computed_at DESC
		LIMIT 1
	`

	rows, err := r.db.GetPool().Query(ctx, query, ticker, window)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	snapshot, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.WinRateSnapshot])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}
	return snapshot, nil
}

// GetByTicker retrieves snapshots whose as-of date falls within [start, end]
func (r *PostgresWinRateSnapshotRepository) GetByTicker(ctx context.Context, ticker string, start, end time.Time) ([]*models.WinRateSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM win_rate_snapshots
		WHERE ticker = $1 AND as_of >= $2 AND as_of <= $3
		ORDER BY as_of ASC, window_size ASC
	`

	rows, err := r.db.GetPool().Query(ctx, query, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots by ticker: %w", err)
	}

	snapshots, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.WinRateSnapshot])
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshots: %w", err)
	}
	return snapshots, nil
}

// DeleteBefore removes snapshots computed before cutoff and returns how many were removed
func (r *PostgresWinRateSnapshotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.GetPool().Exec(ctx, `DELETE FROM win_rate_snapshots WHERE computed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
