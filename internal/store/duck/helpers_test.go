package duck_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"permutest/internal/store/duck/testing"
	"permutest/internal/testutil"
)

const (
	testTimeout = 2 * time.Second
)

// openTestDB opens an in-memory DuckDB instance with the schema applied.
func openTestDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	ctx := testutil.Context(t, testTimeout)
	db := ducktesting.Open(t, ":memory:")
	ducktesting.ApplySchema(t, db)
	return db, ctx
}

// execSQL executes a statement and fails the test on error.
func execSQL(t *testing.T, ctx context.Context, db *sql.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		t.Fatalf("exec sql failed: %v", err)
	}
}

// queryInt returns a single integer value from the database.
func queryInt(t *testing.T, ctx context.Context, db *sql.DB, query string, args ...interface{}) int {
	t.Helper()
	var out int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&out); err != nil {
		t.Fatalf("query int failed: %v", err)
	}
	return out
}

// queryString returns a single string value from the database.
func queryString(t *testing.T, ctx context.Context, db *sql.DB, query string, args ...interface{}) string {
	t.Helper()
	var out string
	if err := db.QueryRowContext(ctx, query, args...).Scan(&out); err != nil {
		t.Fatalf("query string failed: %v", err)
	}
	return out
}

// queryFloat returns a single float value from the database.
func queryFloat(t *testing.T, ctx context.Context, db *sql.DB, query string, args ...interface{}) float64 {
	t.Helper()
	var out float64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&out); err != nil {
		t.Fatalf("query float failed: %v", err)
	}
	return out
}
