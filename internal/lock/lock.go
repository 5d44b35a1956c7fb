// Package lock provides the short-lived mutual exclusion primitive that
// serializes evaluations per task. Locks expire on their own; there is no
// blocking, queuing or crash recovery beyond the TTL.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL is how long an acquired task lock survives without release.
// An evaluation that overruns this loses exclusion for its remainder.
const DefaultTTL = 30 * time.Second

var lockAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eligibility_lock_acquisitions_total",
	Help: "Task lock acquisition attempts by outcome",
}, []string{"outcome"}) // outcome: acquired, contended, degraded

// Manager is the mutual exclusion capability used by the evaluation entry
// point. TryAcquire never returns an error: when the lock backend is down it
// reports success, deliberately trading strict exclusion for availability
// (the eligibility store write stays idempotent either way).
type Manager interface {
	TryAcquire(ctx context.Context, taskID int) bool
	Release(ctx context.Context, taskID int)
}

// RedisManager implements Manager with a single SET NX EX per acquisition
// against the shared Redis client.
type RedisManager struct {
	client func() *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisManager creates a lock manager over the given client getter. The
// getter is consulted per call so a Redis connection established after
// startup is picked up. A non-positive ttl falls back to DefaultTTL.
func NewRedisManager(client func() *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisManager{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "lock").Logger(),
	}
}

// TryAcquire attempts to take the task lock. It returns false only when the
// lock is already held; backend failures report success with a warning.
func (m *RedisManager) TryAcquire(ctx context.Context, taskID int) bool {
	c := m.client()
	if c == nil {
		lockAcquisitions.WithLabelValues("degraded").Inc()
		m.logger.Warn().
			Int("task_id", taskID).
			Msg("Lock backend unavailable, proceeding without mutual exclusion")
		return true
	}

	ok, err := c.SetNX(ctx, lockKey(taskID), "1", m.ttl).Result()
	if err != nil {
		lockAcquisitions.WithLabelValues("degraded").Inc()
		m.logger.Warn().
			Err(err).
			Int("task_id", taskID).
			Msg("Lock acquisition errored, proceeding without mutual exclusion")
		return true
	}
	if !ok {
		lockAcquisitions.WithLabelValues("contended").Inc()
		return false
	}

	lockAcquisitions.WithLabelValues("acquired").Inc()
	return true
}

// Release drops the task lock. Best-effort: a failed delete is left to TTL
// expiry.
func (m *RedisManager) Release(ctx context.Context, taskID int) {
	c := m.client()
	if c == nil {
		return
	}
	if err := c.Del(ctx, lockKey(taskID)).Err(); err != nil {
		m.logger.Debug().
			Err(err).
			Int("task_id", taskID).
			Msg("Lock release failed, lock will expire via TTL")
	}
}

func lockKey(taskID int) string {
	return fmt.Sprintf("task_lock:%d", taskID)
}
