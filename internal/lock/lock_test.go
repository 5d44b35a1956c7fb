package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nilClient() *redis.Client { return nil }

// TestTryAcquireDegradesWithoutBackend verifies the documented weakening:
// with no lock backend every acquisition succeeds.
func TestTryAcquireDegradesWithoutBackend(t *testing.T) {
	m := NewRedisManager(nilClient, DefaultTTL, zerolog.Nop())

	assert.True(t, m.TryAcquire(context.Background(), 42))
	assert.True(t, m.TryAcquire(context.Background(), 42), "no exclusion without a backend")
}

func TestReleaseWithoutBackendIsNoop(t *testing.T) {
	m := NewRedisManager(nilClient, DefaultTTL, zerolog.Nop())

	// Must not panic or block.
	m.Release(context.Background(), 42)
}

func TestLockKeyFormat(t *testing.T) {
	assert.Equal(t, "task_lock:7", lockKey(7))
	assert.Equal(t, "task_lock:1001", lockKey(1001))
}

func TestDefaultTTLFallback(t *testing.T) {
	m := NewRedisManager(nilClient, 0, zerolog.Nop())
	assert.Equal(t, DefaultTTL, m.ttl)

	m = NewRedisManager(nilClient, 10*time.Second, zerolog.Nop())
	assert.Equal(t, 10*time.Second, m.ttl)
}

// TestMutualExclusion exercises the real SET NX EX path against a Redis
// instance. Set REDIS_TEST_ADDR (e.g. localhost:6379) to enable.
func TestMutualExclusion(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()).Err())

	m := NewRedisManager(func() *redis.Client { return client }, 5*time.Second, zerolog.Nop())
	ctx := context.Background()

	const taskID = 990042
	m.Release(ctx, taskID) // clean slate

	assert.True(t, m.TryAcquire(ctx, taskID), "first acquisition wins")
	assert.False(t, m.TryAcquire(ctx, taskID), "second acquisition is rejected while held")

	m.Release(ctx, taskID)
	assert.True(t, m.TryAcquire(ctx, taskID), "acquisition succeeds again after release")
	m.Release(ctx, taskID)
}
