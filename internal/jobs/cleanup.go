// Package jobs holds maintenance operations invoked from the CLI.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CleanupStaleResults deletes eligibility rows whose last evaluation is older
// than the retention window. Tasks evaluated within the window are untouched,
// so the authoritative store only ever loses results nobody has refreshed in
// a long time.
func CleanupStaleResults(ctx context.Context, retention time.Duration) (int, error) {
	pool := getPool()
	if pool == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	cutoff := time.Now().Add(-retention)

	result, err := pool.Exec(ctx, `
		DELETE FROM task_eligible_users
		WHERE computed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error deleting stale eligibility rows: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// getPool returns the database connection pool via the registered getter.
// This is a bridge to the database package to avoid circular dependencies.
func getPool() *pgxpool.Pool {
	if dbPoolGetter == nil {
		return nil
	}
	return dbPoolGetter()
}

var dbPoolGetter func() *pgxpool.Pool

// RegisterDBPoolGetter registers the database pool getter function. Called
// from the database package initialization.
func RegisterDBPoolGetter(getter func() *pgxpool.Pool) {
	dbPoolGetter = getter
}
