package database

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

const testDatabaseEnv = "TEST_DATABASE_URL"

var shared struct {
	once sync.Once
	pool *pgxpool.Pool
	err  error
}

func testDatabaseURL(t *testing.T) string {
	t.Helper()
	dbURL := os.Getenv(testDatabaseEnv)
	if dbURL == "" {
		t.Skip(testDatabaseEnv + " not set, skipping integration test")
	}
	return dbURL
}

// TestPool returns a migrated pool shared by every test in the binary.
func TestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dbURL := testDatabaseURL(t)

	shared.once.Do(func() {
		ctx := context.Background()
		if shared.pool, shared.err = Connect(ctx, dbURL); shared.err != nil {
			return
		}
		shared.err = RunMigrations(ctx, shared.pool)
	})
	if shared.err != nil {
		t.Fatalf("test database: %v", shared.err)
	}
	return shared.pool
}

// TestTx begins a transaction on the shared pool and rolls it back at cleanup.
// Repositories built on it see only the test's own travelers, offers and accounts.
func TestTx(t *testing.T) PGXDB {
	t.Helper()

	tx, err := TestPool(t).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin test transaction: %v", err)
	}
	t.Cleanup(func() { _ = tx.Rollback(context.Background()) })
	return tx
}

// SeedTraveler inserts a bare user row so offers and accounts can reference it.
func SeedTraveler(t *testing.T, db PGXDB, userID int64) {
	t.Helper()

	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, userID)
	if err != nil {
		t.Fatalf("seed traveler %d: %v", userID, err)
	}
}

// ResetTables empties every bot table, children first.
func ResetTables(t *testing.T, db PGXDB) {
	t.Helper()

	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := db.Exec(context.Background(), "TRUNCATE TABLE "+Tables[i]+" CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", Tables[i], err)
		}
	}
}
