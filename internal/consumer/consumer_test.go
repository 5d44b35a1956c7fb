package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/eligibility-service/internal/engine"
	"github.com/taskdesk/eligibility-service/internal/queue"
)

type fakeEvaluator struct {
	err   error
	calls []int
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, taskID int, rules map[string]any) (engine.Summary, error) {
	f.calls = append(f.calls, taskID)
	if f.err != nil {
		return engine.Summary{}, f.err
	}
	return engine.Summary{TaskID: taskID, EligibleCount: 1}, nil
}

func newTestConsumer(eval Evaluator) *Consumer {
	q := queue.New(func() *redis.Client { return nil }, zerolog.Nop())
	return New(q, eval, 10*time.Millisecond, zerolog.Nop())
}

func TestProcessValidJob(t *testing.T) {
	eval := &fakeEvaluator{}
	c := newTestConsumer(eval)

	payload, err := json.Marshal(queue.Job{JobID: "j1", TaskID: 42, Rules: map[string]any{"department": "ops"}})
	require.NoError(t, err)

	c.process(context.Background(), &queue.Item{Queue: queue.AssignmentQueue, Payload: payload})

	assert.Equal(t, []int{42}, eval.calls)
}

func TestProcessDropsMalformedPayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "not-json{"},
		{"missing task_id", `{"rules":{}}`},
		{"non-positive task_id", `{"task_id":0}`},
		{"wrongly typed task_id", `{"task_id":"abc"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &fakeEvaluator{}
			c := newTestConsumer(eval)

			c.process(context.Background(), &queue.Item{
				Queue:   queue.RecomputeQueue,
				Payload: []byte(tt.payload),
			})

			// Malformed items are dropped silently, never evaluated.
			assert.Empty(t, eval.calls)
		})
	}
}

func TestProcessLockedJobNotRetried(t *testing.T) {
	eval := &fakeEvaluator{err: engine.ErrTaskLocked}
	c := newTestConsumer(eval)

	payload, _ := json.Marshal(queue.Job{TaskID: 7, Rules: map[string]any{}})
	c.process(context.Background(), &queue.Item{Queue: queue.AssignmentQueue, Payload: payload})

	// Exactly one attempt; contention never re-runs the job here.
	assert.Equal(t, []int{7}, eval.calls)
}

func TestProcessFailedJobNotRetried(t *testing.T) {
	eval := &fakeEvaluator{err: errors.New("user service down")}
	c := newTestConsumer(eval)

	payload, _ := json.Marshal(queue.Job{TaskID: 8, Rules: map[string]any{}})
	c.process(context.Background(), &queue.Item{Queue: queue.AssignmentQueue, Payload: payload})

	assert.Equal(t, []int{8}, eval.calls)
}

func TestStartSurvivesBackendOutageAndStops(t *testing.T) {
	// The queue getter yields no client, so every dequeue fails; the loop
	// must idle instead of exiting, then stop on Stop().
	eval := &fakeEvaluator{}
	c := newTestConsumer(eval)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	c.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Empty(t, eval.calls)
}

func TestStartStopsOnContextCancel(t *testing.T) {
	c := newTestConsumer(&fakeEvaluator{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop on context cancel")
	}
}
