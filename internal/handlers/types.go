package handlers

// Wire types of the internal API. These are the shared contract consumed by
// other services; cmd/schema-gen emits JSON schemas from them.

// EvaluateRequest is the strict body of POST /internal/evaluate and
// POST /internal/enqueue.
type EvaluateRequest struct {
	TaskID *int           `json:"task_id" binding:"required"`
	Rules  map[string]any `json:"rules"`
}

// EvaluationSummary is the successful evaluation response.
type EvaluationSummary struct {
	TaskID         int  `json:"task_id"`
	EligibleCount  int  `json:"eligible_count"`
	AssignedUserID *int `json:"assigned_user_id"`
}

// LockedResponse is returned when a concurrent evaluation holds the task
// lock. Contention is a result, not an error, so it ships with HTTP 200.
type LockedResponse struct {
	TaskID int    `json:"task_id"`
	Status string `json:"status"`
}

// EnqueueAcceptedResponse acknowledges that a recompute job was queued. It
// promises delivery to the queue, not processing.
type EnqueueAcceptedResponse struct {
	Queued bool   `json:"queued"`
	JobID  string `json:"job_id"`
	TaskID int    `json:"task_id"`
}

// EligibleUser is one ranked entry of a task's eligibility result.
type EligibleUser struct {
	UserID int `json:"user_id"`
	Score  int `json:"score"`
}

// EligibleUsersResponse lists a task's eligible users in rank order.
type EligibleUsersResponse struct {
	TaskID int            `json:"task_id"`
	Users  []EligibleUser `json:"users"`
}

// MyEligibleTasksResponse lists the tasks a user is currently eligible for,
// sorted ascending.
type MyEligibleTasksResponse struct {
	UserID int   `json:"user_id"`
	Tasks  []int `json:"tasks"`
}

// ErrorResponse carries a human-readable error message.
type ErrorResponse struct {
	Error string `json:"error"`
}
