package database

import (
	"context"
	"fmt"
)

// schemaStatements create the tables this service owns. Statements are
// idempotent so they can run on every start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS task_eligible_users (
		task_id     BIGINT      NOT NULL,
		user_id     BIGINT      NOT NULL,
		score       INTEGER     NOT NULL,
		rank        INTEGER     NOT NULL DEFAULT 0,
		computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (task_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_eligible_users_user
		ON task_eligible_users (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_task_eligible_users_computed
		ON task_eligible_users (computed_at)`,
}

// EnsureSchema creates the eligibility tables if they do not exist yet.
// Requires a connected pool.
func EnsureSchema(ctx context.Context) error {
	p := Pool()
	if p == nil {
		return fmt.Errorf("database not initialized")
	}

	for _, stmt := range schemaStatements {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("error ensuring schema: %w", err)
		}
	}
	return nil
}
