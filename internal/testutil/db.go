package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// SetupPool creates a pgxpool.Pool for integration tests. Tests are skipped
// when TEST_DATABASE_URL is not set so the unit suite runs without Postgres.
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pool.Close() })
	return pool
}

// EnsureUsersTable creates the subset of the users table the alert engine
// reads and writes.
func EnsureUsersTable(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY,
			email         TEXT UNIQUE NOT NULL,
			password_hash TEXT,
			name          TEXT DEFAULT '',
			preferences   JSONB DEFAULT '{}'::jsonb,
			created_at    TIMESTAMPTZ DEFAULT NOW()
		)`)
	if err != nil {
		t.Fatalf("create users table: %v", err)
	}
}
