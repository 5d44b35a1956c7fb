package eligibility

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the authoritative eligibility store backed by the
// task_eligible_users table. The pool getter is consulted per call so a
// database connection established after startup is picked up.
type PostgresStore struct {
	pool func() *pgxpool.Pool
}

// NewPostgresStore creates a store over the given pool getter.
func NewPostgresStore(pool func() *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save replaces every prior row for the task with the new ranked set inside
// one transaction, so concurrent readers see either the old result or the
// new one, never a mix. Rank records the evaluator's output order.
func (s *PostgresStore) Save(ctx context.Context, taskID int, ranked []RankedUser) error {
	p := s.pool()
	if p == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := p.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning save transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM task_eligible_users WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("error clearing prior eligibility rows: %w", err)
	}

	if len(ranked) > 0 {
		batch := &pgx.Batch{}
		for i, r := range ranked {
			batch.Queue(`
				INSERT INTO task_eligible_users (task_id, user_id, score, rank, computed_at)
				VALUES ($1, $2, $3, $4, NOW())
				ON CONFLICT (task_id, user_id)
				DO UPDATE SET score = EXCLUDED.score, rank = EXCLUDED.rank, computed_at = NOW()
			`, taskID, r.UserID, r.Score, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("error inserting eligibility rows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing eligibility save: %w", err)
	}
	return nil
}

// LoadByTask returns the task's result in the order it was ranked at save
// time. Unknown tasks yield an empty result.
func (s *PostgresStore) LoadByTask(ctx context.Context, taskID int) ([]RankedUser, error) {
	p := s.pool()
	if p == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := p.Query(ctx, `
		SELECT user_id, score
		FROM task_eligible_users
		WHERE task_id = $1
		ORDER BY rank
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("error loading eligibility rows: %w", err)
	}
	defer rows.Close()

	ranked := make([]RankedUser, 0)
	for rows.Next() {
		var r RankedUser
		if err := rows.Scan(&r.UserID, &r.Score); err != nil {
			return nil, fmt.Errorf("error scanning eligibility row: %w", err)
		}
		ranked = append(ranked, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating eligibility rows: %w", err)
	}
	return ranked, nil
}

// TasksForUser returns the tasks the user is currently eligible for, sorted
// ascending.
func (s *PostgresStore) TasksForUser(ctx context.Context, userID int) ([]int, error) {
	p := s.pool()
	if p == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := p.Query(ctx, `
		SELECT DISTINCT task_id
		FROM task_eligible_users
		WHERE user_id = $1
		ORDER BY task_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user task rows: %w", err)
	}
	defer rows.Close()

	tasks := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning user task row: %w", err)
		}
		tasks = append(tasks, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user task rows: %w", err)
	}
	return tasks, nil
}

// TaskIDs returns every task with a persisted result, sorted ascending.
func (s *PostgresStore) TaskIDs(ctx context.Context) ([]int, error) {
	p := s.pool()
	if p == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := p.Query(ctx, `
		SELECT DISTINCT task_id
		FROM task_eligible_users
		ORDER BY task_id
	`)
	if err != nil {
		return nil, fmt.Errorf("error loading task ids: %w", err)
	}
	defer rows.Close()

	tasks := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning task id: %w", err)
		}
		tasks = append(tasks, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task ids: %w", err)
	}
	return tasks, nil
}
