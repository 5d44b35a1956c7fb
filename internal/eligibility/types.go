// Package eligibility persists and serves ranked eligibility results. One
// Repository fronts three layers: a Redis fast path, an authoritative
// Postgres store and a process-local mirror that keeps the service answering
// when both backends are gone.
package eligibility

import "context"

// RankedUser is one entry of a task's eligibility result. Order within a
// result is the ranking produced by the evaluator.
type RankedUser struct {
	UserID int `json:"user_id"`
	Score  int `json:"score"`
}

// Store is an authoritative backend for eligibility results. Save replaces
// all prior entries for the task.
type Store interface {
	Save(ctx context.Context, taskID int, ranked []RankedUser) error
	LoadByTask(ctx context.Context, taskID int) ([]RankedUser, error)
	TasksForUser(ctx context.Context, userID int) ([]int, error)
	TaskIDs(ctx context.Context) ([]int, error)
}

// Cache is the fast-path read layer derived from the store. A miss is not an
// error; it sends the reader down the chain.
type Cache interface {
	// Refresh overwrites the task's cached result and adjusts the per-user
	// task indexes: ranked users gain the task, removed users lose it.
	Refresh(ctx context.Context, taskID int, ranked []RankedUser, removedUsers []int) error
	GetByTask(ctx context.Context, taskID int) ([]RankedUser, bool, error)
	GetTasksForUser(ctx context.Context, userID int) ([]int, bool, error)
}
