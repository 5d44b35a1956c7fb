package database

import (
	"time"
)

// EligibleUserRow is one row of task_eligible_users: a user that satisfied a
// task's rules at evaluation time, with the score and rank position recorded
// for that evaluation. Rank preserves the exact ordering produced by the
// evaluator, including stable tie-breaks, across the read path.
type EligibleUserRow struct {
	TaskID     int64     `json:"task_id"`
	UserID     int64     `json:"user_id"`
	Score      int       `json:"score"`
	Rank       int       `json:"rank"`
	ComputedAt time.Time `json:"computed_at"`
}
