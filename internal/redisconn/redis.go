// Package redisconn manages the shared Redis client used for the eligibility
// cache, the task locks and the work queues. The connection is optional: a
// failed connect leaves the client nil and callers degrade per their own
// contracts instead of failing.
package redisconn

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

var (
	client   *redis.Client
	clientMu sync.RWMutex
)

// Connect creates the shared Redis client and verifies connectivity (safe
// for concurrent use). Reconnecting after Close is allowed.
func Connect(ctx context.Context, addr, password string, db int) error {
	clientMu.Lock()
	defer clientMu.Unlock()

	if client != nil {
		return nil
	}

	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return fmt.Errorf("error connecting to redis: %w", err)
	}

	client = c
	return nil
}

// Close closes the shared Redis client.
func Close() {
	clientMu.Lock()
	defer clientMu.Unlock()
	if client != nil {
		_ = client.Close()
		client = nil
	}
}

// Client returns the shared Redis client, or nil when not connected.
func Client() *redis.Client {
	clientMu.RLock()
	defer clientMu.RUnlock()
	return client
}

// Status returns the current status of the Redis connection.
func Status(ctx context.Context) error {
	clientMu.RLock()
	c := client
	clientMu.RUnlock()

	if c == nil {
		return fmt.Errorf("redis not initialized")
	}
	return c.Ping(ctx).Err()
}
