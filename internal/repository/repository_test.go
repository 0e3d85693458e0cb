package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/gauger/internal/database"
	"github.com/yourusername/gauger/internal/models"
)

func TestNewRepositoriesRequiresDB(t *testing.T) {
	repos, err := NewRepositories(nil)
	assert.Error(t, err)
	assert.Nil(t, repos)
}

func testTicker() string {
	return "T" + uuid.NewString()[:8]
}

// TestSnapshotRepositoryRoundTrip tests batch insert and latest lookup
func TestSnapshotRepositoryRoundTrip(t *testing.T) {
	db := database.SetupTestDB(t)

	repos, err := NewRepositories(db)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ticker := testTicker()
	asOf := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	older := models.NewWinRateSnapshot(ticker, 20, asOf, 0.97, 0.22, "10y")
	older.ComputedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	newer := models.NewWinRateSnapshot(ticker, 20, asOf.AddDate(0, 0, 1), 1.01, 0.58, "10y")
	newer.ComputedAt = time.Now().UTC().Truncate(time.Microsecond)
	other := models.NewWinRateSnapshot(ticker, 50, asOf, 1.03, 0.71, "10y")

	require.NoError(t, repos.Snapshot.SaveBatch(ctx, []*models.WinRateSnapshot{older, newer, other}))

	latest, err := repos.Snapshot.GetLatest(ctx, ticker, 20)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.InDelta(t, 0.58, latest.WinRate, 1e-12)

	history, err := repos.Snapshot.GetByTicker(ctx, ticker, asOf, asOf.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, history, 3)

	_, err = repos.Snapshot.GetLatest(ctx, ticker, 200)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// TestSnapshotRepositoryPrune tests retention deletes
func TestSnapshotRepositoryPrune(t *testing.T) {
	db := database.SetupTestDB(t)
	repo := NewPostgresWinRateSnapshotRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ticker := testTicker()
	stale := models.NewWinRateSnapshot(ticker, 100, time.Now().UTC(), 0.9, 0.1, "1y")
	stale.ComputedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveBatch(ctx, []*models.WinRateSnapshot{stale}))

	removed, err := repo.DeleteBefore(ctx, time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, removed, int64(1))

	_, err = repo.GetLatest(ctx, ticker, 100)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSaveBatchEmpty(t *testing.T) {
	repo := &PostgresWinRateSnapshotRepository{}
	assert.NoError(t, repo.SaveBatch(context.Background(), nil))
}

// TestSnapshotRepositorySaveBatchReplacesSameDay tests that rerunning a day
// replaces its rows instead of duplicating them
func TestSnapshotRepositorySaveBatchReplacesSameDay(t *testing.T) {
	db := database.SetupTestDB(t)
	repo := NewPostgresWinRateSnapshotRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ticker := testTicker()
	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	first := models.NewWinRateSnapshot(ticker, 20, asOf, 1.00, 0.40, "10y")
	require.NoError(t, repo.SaveBatch(ctx, []*models.WinRateSnapshot{first}))

	rerun := models.NewWinRateSnapshot(ticker, 20, asOf, 1.02, 0.55, "10y")
	otherPeriod := models.NewWinRateSnapshot(ticker, 20, asOf, 1.02, 0.60, "1y")
	require.NoError(t, repo.SaveBatch(ctx, []*models.WinRateSnapshot{rerun, otherPeriod}))

	history, err := repo.GetByTicker(ctx, ticker, asOf, asOf)
	require.NoError(t, err)
	require.Len(t, history, 2)

	ids := []interface{}{history[0].ID, history[1].ID}
	assert.Contains(t, ids, rerun.ID)
	assert.Contains(t, ids, otherPeriod.ID)
	assert.NotContains(t, ids, first.ID)
}
