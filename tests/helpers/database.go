package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizmatters/design-research-gateway/internal/session"
)

// DatabaseURL returns the PostgreSQL URL for store tests. It prefers
// POSTGRES_URL and otherwise assembles one from the POSTGRES_* variables;
// ok is false when neither is set.
func DatabaseURL() (string, bool) {
	if url := os.Getenv("POSTGRES_URL"); url != "" {
		return url, true
	}

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return "", false
	}

	port := getenv("POSTGRES_PORT", "5432")
	user := getenv("POSTGRES_USER", "postgres")
	password := getenv("POSTGRES_PASSWORD", "postgres")
	dbname := getenv("POSTGRES_DB", "design_research_test")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=prefer",
		user, password, host, port, dbname), true
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestDatabase is a PostgreSQL session store backed by a real database.
type TestDatabase struct {
	Pool  *pgxpool.Pool
	Store *session.PostgresStore
}

// NewTestDatabase connects to the test database and creates the schema.
// The test is skipped when no database is configured.
func NewTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	url, ok := DatabaseURL()
	if !ok {
		t.Skip("POSTGRES_URL or POSTGRES_HOST not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to ping database: %v", err)
	}

	store := session.NewPostgresStoreWithPool(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	db := &TestDatabase{Pool: pool, Store: store}
	t.Cleanup(db.Close)
	return db
}

// Close closes the pool.
func (db *TestDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// DeleteSession removes a record written by a test.
func (db *TestDatabase) DeleteSession(t *testing.T, id string) {
	t.Helper()
	if _, err := db.Pool.Exec(context.Background(), "DELETE FROM research_sessions WHERE id = $1", id); err != nil {
		t.Logf("Warning: failed to delete session %s: %v", id, err)
	}
}

// SessionCount returns the number of stored sessions.
func (db *TestDatabase) SessionCount(t *testing.T) int {
	t.Helper()
	var count int
	if err := db.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM research_sessions").Scan(&count); err != nil {
		t.Fatalf("Failed to count sessions: %v", err)
	}
	return count
}
