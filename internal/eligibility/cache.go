package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisCache stores each task's ranked result as a JSON string under
// eligible_users:{taskID} and maintains a per-user task index in the
// user_eligible_tasks:{userID} sets. It is refreshed synchronously by Save
// and never invalidated on its own, so entries may lag the store.
type RedisCache struct {
	client func() *redis.Client
	logger zerolog.Logger
}

// NewRedisCache creates a cache over the given client getter.
func NewRedisCache(client func() *redis.Client, logger zerolog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger.With().Str("component", "eligibility-cache").Logger(),
	}
}

func taskKey(taskID int) string {
	return fmt.Sprintf("eligible_users:%d", taskID)
}

func userKey(userID int) string {
	return fmt.Sprintf("user_eligible_tasks:%d", userID)
}

// Refresh implements Cache. All writes for one refresh go out in a single
// pipeline.
func (r *RedisCache) Refresh(ctx context.Context, taskID int, ranked []RankedUser, removedUsers []int) error {
	c := r.client()
	if c == nil {
		return fmt.Errorf("cache not initialized")
	}

	payload, err := json.Marshal(ranked)
	if err != nil {
		return fmt.Errorf("error encoding cache payload: %w", err)
	}

	_, err = c.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, taskKey(taskID), payload, 0)
		for _, ru := range ranked {
			pipe.SAdd(ctx, userKey(ru.UserID), taskID)
		}
		for _, uid := range removedUsers {
			pipe.SRem(ctx, userKey(uid), taskID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error refreshing cache: %w", err)
	}
	return nil
}

// GetByTask implements Cache. A corrupt entry counts as a miss so readers
// fall through to the authoritative store.
func (r *RedisCache) GetByTask(ctx context.Context, taskID int) ([]RankedUser, bool, error) {
	c := r.client()
	if c == nil {
		return nil, false, fmt.Errorf("cache not initialized")
	}

	val, err := c.Get(ctx, taskKey(taskID)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading cache: %w", err)
	}

	ranked, err := decodeRanked([]byte(val))
	if err != nil {
		r.logger.Debug().
			Err(err).
			Int("task_id", taskID).
			Msg("Corrupt cache entry, treating as miss")
		return nil, false, nil
	}
	return ranked, true, nil
}

// GetTasksForUser implements Cache. An empty set is a miss: the set only
// proves membership, never absence, so the store stays the authority for
// "no tasks".
func (r *RedisCache) GetTasksForUser(ctx context.Context, userID int) ([]int, bool, error) {
	c := r.client()
	if c == nil {
		return nil, false, fmt.Errorf("cache not initialized")
	}

	members, err := c.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("error reading user task index: %w", err)
	}
	if len(members) == 0 {
		return nil, false, nil
	}

	tasks := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		tasks = append(tasks, id)
	}
	sort.Ints(tasks)
	return tasks, true, nil
}

// decodeRanked parses a cached task result.
func decodeRanked(payload []byte) ([]RankedUser, error) {
	var ranked []RankedUser
	if err := json.Unmarshal(payload, &ranked); err != nil {
		return nil, err
	}
	return ranked, nil
}
