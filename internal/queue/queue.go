// Package queue implements the Redis work queue that decouples rule changes
// from evaluation. Delivery is at-least-once and FIFO per queue; there is no
// ordering across tasks and no acknowledgment back to producers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// AssignmentQueue receives jobs from task create/update events.
	AssignmentQueue = "task_assignment_queue"

	// RecomputeQueue receives explicit recomputation requests.
	RecomputeQueue = "eligibility_recompute_queue"

	// DequeueTimeout bounds the blocking pop. A timeout is idle polling,
	// not a failure.
	DequeueTimeout = 5 * time.Second
)

// queues lists every queue the consumer drains, in pop priority order.
var queues = []string{AssignmentQueue, RecomputeQueue}

// Item is one raw dequeued payload with the queue it came from.
type Item struct {
	Queue   string
	Payload []byte
}

// Queue is the Redis-backed work queue.
type Queue struct {
	client func() *redis.Client
	logger zerolog.Logger
}

// New creates a queue over the given client getter. The getter is consulted
// per call so a Redis connection established after startup is picked up.
func New(client func() *redis.Client, logger zerolog.Logger) *Queue {
	return &Queue{
		client: client,
		logger: logger.With().Str("component", "queue").Logger(),
	}
}

// Enqueue pushes a recompute job onto the assignment queue. Fire-and-forget:
// no processing acknowledgment ever reaches the producer. A missing job ID
// and enqueue time are filled in.
func (q *Queue) Enqueue(ctx context.Context, job Job) (Job, error) {
	c := q.client()
	if c == nil {
		return job, fmt.Errorf("queue backend not initialized")
	}

	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return job, fmt.Errorf("error encoding job: %w", err)
	}

	if err := c.LPush(ctx, AssignmentQueue, payload).Err(); err != nil {
		return job, fmt.Errorf("error enqueueing job: %w", err)
	}

	q.logger.Debug().
		Str("job_id", job.JobID).
		Int("task_id", job.TaskID).
		Msg("Enqueued recompute job")
	return job, nil
}

// Dequeue blocks on both queues for up to DequeueTimeout and returns the
// oldest item, or nil on timeout.
func (q *Queue) Dequeue(ctx context.Context) (*Item, error) {
	c := q.client()
	if c == nil {
		return nil, fmt.Errorf("queue backend not initialized")
	}

	res, err := c.BRPop(ctx, DequeueTimeout, queues...).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error dequeueing: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}

	return &Item{Queue: res[0], Payload: []byte(res[1])}, nil
}

// Depths returns the current length of every queue, for monitoring.
func (q *Queue) Depths(ctx context.Context) (map[string]int64, error) {
	c := q.client()
	if c == nil {
		return nil, fmt.Errorf("queue backend not initialized")
	}

	depths := make(map[string]int64, len(queues))
	for _, name := range queues {
		n, err := c.LLen(ctx, name).Result()
		if err != nil {
			return nil, fmt.Errorf("error reading depth of %s: %w", name, err)
		}
		depths[name] = n
	}
	return depths, nil
}
