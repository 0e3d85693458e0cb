package database

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestDatabaseURLEnv names the variable holding the integration test DSN
const TestDatabaseURLEnv = "TEST_DATABASE_URL"

// SetupTestDB connects to the integration database and ensures the schema.
// The test is skipped when TEST_DATABASE_URL is unset.
func SetupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv(TestDatabaseURLEnv)
	if dsn == "" {
		t.Skip("Integration test - set " + TestDatabaseURLEnv + " to run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Connect(ctx, dsn, 2)
	if err != nil {
		t.Fatalf("failed to create test database connection: %v", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		t.Fatalf("failed to prepare test schema: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}
