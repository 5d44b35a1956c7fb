// Package consumer runs the worker process loop: block on the work queues,
// decode each item, feed it to the evaluation entry point. Deliberately
// fire-and-forget: malformed payloads are dropped with no dead-letter queue,
// and downstream failures are logged but never retried here — producers that
// need guaranteed execution re-enqueue.
package consumer

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/taskdesk/eligibility-service/internal/engine"
	"github.com/taskdesk/eligibility-service/internal/queue"
)

// DefaultIdleDelay is the sleep between polls when the queues are empty or
// the queue backend is down.
const DefaultIdleDelay = 1 * time.Second

var jobs = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eligibility_consumer_jobs_total",
	Help: "Consumed queue items by result",
}, []string{"result"}) // result: completed, locked, failed, dropped

// Evaluator is the evaluation entry point the consumer feeds.
type Evaluator interface {
	Evaluate(ctx context.Context, taskID int, rules map[string]any) (engine.Summary, error)
}

// Consumer drains the work queues until stopped.
type Consumer struct {
	queue     *queue.Queue
	evaluator Evaluator
	idleDelay time.Duration
	logger    zerolog.Logger
	stopChan  chan struct{}
}

// New creates a consumer. A non-positive idleDelay falls back to
// DefaultIdleDelay.
func New(q *queue.Queue, evaluator Evaluator, idleDelay time.Duration, logger zerolog.Logger) *Consumer {
	if idleDelay <= 0 {
		idleDelay = DefaultIdleDelay
	}
	return &Consumer{
		queue:     q,
		evaluator: evaluator,
		idleDelay: idleDelay,
		logger:    logger.With().Str("component", "consumer").Logger(),
		stopChan:  make(chan struct{}),
	}
}

// Start runs the consume loop until the context is cancelled or Stop is
// called. Dequeue errors (including an unavailable backend) are treated as
// idle polling, so the loop survives a Redis outage and resumes when the
// connection comes back.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info().Dur("idle_delay", c.idleDelay).Msg("Starting queue consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Queue consumer stopping (context cancelled)")
			return
		case <-c.stopChan:
			c.logger.Info().Msg("Queue consumer stopping (stop signal)")
			return
		default:
		}

		item, err := c.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Warn().Err(err).Msg("Dequeue failed, idling")
			c.sleep(ctx)
			continue
		}
		if item == nil {
			c.sleep(ctx)
			continue
		}

		c.process(ctx, item)
	}
}

// Stop signals the consumer to stop after the current item.
func (c *Consumer) Stop() {
	close(c.stopChan)
}

// process decodes one item and runs exactly one evaluation for it.
func (c *Consumer) process(ctx context.Context, item *queue.Item) {
	job, err := queue.DecodeJob(item.Payload)
	if err != nil {
		jobs.WithLabelValues("dropped").Inc()
		c.logger.Warn().
			Err(err).
			Str("queue", item.Queue).
			Msg("Dropping malformed queue item")
		return
	}

	summary, err := c.evaluator.Evaluate(ctx, job.TaskID, job.Rules)
	switch {
	case errors.Is(err, engine.ErrTaskLocked):
		jobs.WithLabelValues("locked").Inc()
		c.logger.Info().
			Str("job_id", job.JobID).
			Int("task_id", job.TaskID).
			Msg("Task locked by concurrent evaluation, job not retried")
	case err != nil:
		jobs.WithLabelValues("failed").Inc()
		c.logger.Warn().
			Err(err).
			Str("job_id", job.JobID).
			Int("task_id", job.TaskID).
			Msg("Evaluation failed, job not retried")
	default:
		jobs.WithLabelValues("completed").Inc()
		evt := c.logger.Info().
			Str("job_id", job.JobID).
			Str("queue", item.Queue).
			Int("task_id", job.TaskID).
			Int("eligible_count", summary.EligibleCount)
		if summary.AssignedUserID != nil {
			evt = evt.Int("assigned_user_id", *summary.AssignedUserID)
		}
		evt.Msg("Processed recompute job")
	}
}

func (c *Consumer) sleep(ctx context.Context) {
	t := time.NewTimer(c.idleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-c.stopChan:
	case <-t.C:
	}
}
