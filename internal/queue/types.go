package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Job is one queued recompute request: a task and the rule-set snapshot taken
// when the change happened. job_id and enqueued_at are additive metadata;
// producers that push the bare {"task_id", "rules"} form stay compatible.
type Job struct {
	JobID      string         `json:"job_id,omitempty"`
	TaskID     int            `json:"task_id"`
	Rules      map[string]any `json:"rules"`
	EnqueuedAt time.Time      `json:"enqueued_at,omitempty"`
}

// DecodeJob parses a queued payload. Anything without a positive integer
// task_id is malformed; the consumer drops such items rather than failing.
func DecodeJob(payload []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, fmt.Errorf("error decoding job payload: %w", err)
	}
	if job.TaskID <= 0 {
		return Job{}, fmt.Errorf("job payload has no usable task_id")
	}
	if job.Rules == nil {
		job.Rules = map[string]any{}
	}
	return job, nil
}
