package database

import (
	"context"
	"fmt"

	"github.com/yourusername/gauger/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS win_rate_snapshots (
	id          UUID PRIMARY KEY,
	ticker      VARCHAR(32) NOT NULL,
	window_size INTEGER NOT NULL CHECK (window_size > 0),
	as_of       TIMESTAMPTZ NOT NULL,
	ratio       DOUBLE PRECISION NOT NULL,
	win_rate    DOUBLE PRECISION NOT NULL,
	period      VARCHAR(16) NOT NULL DEFAULT '',
	computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_win_rate_snapshots_ticker_window
	ON win_rate_snapshots (ticker, window_size, computed_at DESC);
CREATE INDEX IF NOT EXISTS idx_win_rate_snapshots_as_of
	ON win_rate_snapshots (as_of);
`

// Initialize connects using the application config and ensures the schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the snapshot table and its indexes when missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
