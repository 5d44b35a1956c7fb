package eligibility

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var errStoreUnavailable = errors.New("store unavailable")

// Repository fronts the three eligibility layers. Saves write every layer
// that is up and never fail: the in-memory mirror is always current for the
// process lifetime, so a save with both backends down still serves readers
// until restart. Reads consult cache, then store, then mirror.
type Repository struct {
	store   Store
	cache   Cache
	mirror  *MemoryStore
	breaker *Breaker
	flight  singleflight.Group
	logger  zerolog.Logger
}

// NewRepository creates a repository. store and cache may be nil when the
// corresponding backend is not configured; the in-memory mirror is always
// present.
func NewRepository(store Store, cache Cache, logger zerolog.Logger) *Repository {
	l := logger.With().Str("component", "eligibility").Logger()
	return &Repository{
		store:   store,
		cache:   cache,
		mirror:  NewMemoryStore(),
		breaker: NewBreaker(DefaultBreakerConfig(), l),
		logger:  l,
	}
}

// Save replaces the task's result in every reachable layer. Backend failures
// degrade to weaker guarantees instead of propagating, which is why Save has
// no error to return.
func (r *Repository) Save(ctx context.Context, taskID int, ranked []RankedUser) {
	removed := r.mirror.Replace(taskID, ranked)

	if r.store != nil {
		if r.breaker.Allow() {
			if err := r.store.Save(ctx, taskID, ranked); err != nil {
				r.breaker.RecordFailure(err)
				saveFailures.WithLabelValues("postgres").Inc()
				r.logger.Warn().
					Err(err).
					Int("task_id", taskID).
					Msg("Store save failed, result held in memory")
			} else {
				r.breaker.RecordSuccess()
			}
		} else {
			saveFailures.WithLabelValues("postgres").Inc()
			r.logger.Debug().
				Int("task_id", taskID).
				Msg("Store breaker open, skipping persistent save")
		}
	}

	if r.cache != nil {
		if err := r.cache.Refresh(ctx, taskID, ranked, removed); err != nil {
			saveFailures.WithLabelValues("redis").Inc()
			r.logger.Warn().
				Err(err).
				Int("task_id", taskID).
				Msg("Cache refresh failed, readers will fall back to the store")
		}
	}
}

// LoadByTask returns the task's ranked result. Reads never fail; with every
// backend down the in-memory mirror answers (possibly empty).
func (r *Repository) LoadByTask(ctx context.Context, taskID int) []RankedUser {
	if r.cache != nil {
		ranked, ok, err := r.cache.GetByTask(ctx, taskID)
		if err != nil {
			r.logger.Debug().
				Err(err).
				Int("task_id", taskID).
				Msg("Cache read failed, falling back to store")
		} else if ok {
			readsByLayer.WithLabelValues("redis").Inc()
			return ranked
		}
	}

	v, err, _ := r.flight.Do(fmt.Sprintf("task:%d", taskID), func() (any, error) {
		return r.storeLoadByTask(ctx, taskID)
	})
	if err == nil {
		readsByLayer.WithLabelValues("postgres").Inc()
		return v.([]RankedUser)
	}
	if !errors.Is(err, errStoreUnavailable) {
		r.logger.Warn().
			Err(err).
			Int("task_id", taskID).
			Msg("Store read failed, serving in-memory fallback")
	}

	readsByLayer.WithLabelValues("memory").Inc()
	ranked, _ := r.mirror.LoadByTask(ctx, taskID)
	return ranked
}

// TasksForUser returns the tasks the user is currently eligible for, sorted
// ascending. Same layer chain as LoadByTask.
func (r *Repository) TasksForUser(ctx context.Context, userID int) []int {
	if r.cache != nil {
		tasks, ok, err := r.cache.GetTasksForUser(ctx, userID)
		if err != nil {
			r.logger.Debug().
				Err(err).
				Int("user_id", userID).
				Msg("Cache read failed, falling back to store")
		} else if ok {
			readsByLayer.WithLabelValues("redis").Inc()
			return tasks
		}
	}

	v, err, _ := r.flight.Do(fmt.Sprintf("user:%d", userID), func() (any, error) {
		return r.storeTasksForUser(ctx, userID)
	})
	if err == nil {
		readsByLayer.WithLabelValues("postgres").Inc()
		return v.([]int)
	}
	if !errors.Is(err, errStoreUnavailable) {
		r.logger.Warn().
			Err(err).
			Int("user_id", userID).
			Msg("Store read failed, serving in-memory fallback")
	}

	readsByLayer.WithLabelValues("memory").Inc()
	tasks, _ := r.mirror.TasksForUser(ctx, userID)
	return tasks
}

// Warm loads every persisted task result into the cache and the mirror,
// fanning out store reads up to the given concurrency. Best-effort: tasks
// that fail to load are logged and skipped. Returns the number of tasks
// warmed.
func (r *Repository) Warm(ctx context.Context, concurrency int64) (int, error) {
	if r.store == nil {
		return 0, fmt.Errorf("no authoritative store configured")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	ids, err := r.store.TaskIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing tasks to warm: %w", err)
	}

	sem := semaphore.NewWeighted(concurrency)
	var wg sync.WaitGroup
	var warmed atomic.Int64

	for _, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(taskID int) {
			defer wg.Done()
			defer sem.Release(1)

			ranked, err := r.store.LoadByTask(ctx, taskID)
			if err != nil {
				r.logger.Warn().
					Err(err).
					Int("task_id", taskID).
					Msg("Failed to warm task")
				return
			}
			removed := r.mirror.Replace(taskID, ranked)
			if r.cache != nil {
				if err := r.cache.Refresh(ctx, taskID, ranked, removed); err != nil {
					r.logger.Debug().
						Err(err).
						Int("task_id", taskID).
						Msg("Cache refresh failed during warm")
				}
			}
			warmedTasks.Inc()
			warmed.Add(1)
		}(id)
	}

	wg.Wait()
	return int(warmed.Load()), nil
}

// BreakerState exposes the store breaker state for readiness reporting.
func (r *Repository) BreakerState() BreakerState {
	return r.breaker.State()
}

func (r *Repository) storeLoadByTask(ctx context.Context, taskID int) ([]RankedUser, error) {
	if r.store == nil {
		return nil, errStoreUnavailable
	}
	if !r.breaker.Allow() {
		return nil, errStoreUnavailable
	}
	ranked, err := r.store.LoadByTask(ctx, taskID)
	if err != nil {
		r.breaker.RecordFailure(err)
		return nil, err
	}
	r.breaker.RecordSuccess()
	return ranked, nil
}

func (r *Repository) storeTasksForUser(ctx context.Context, userID int) ([]int, error) {
	if r.store == nil {
		return nil, errStoreUnavailable
	}
	if !r.breaker.Allow() {
		return nil, errStoreUnavailable
	}
	tasks, err := r.store.TasksForUser(ctx, userID)
	if err != nil {
		r.breaker.RecordFailure(err)
		return nil, err
	}
	r.breaker.RecordSuccess()
	return tasks, nil
}
