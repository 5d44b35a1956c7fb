package eligibility

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	saved     map[int][]RankedUser
	saveErr   error
	loadErr   error
	loadCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[int][]RankedUser)}
}

func (f *fakeStore) Save(_ context.Context, taskID int, ranked []RankedUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := make([]RankedUser, len(ranked))
	copy(cp, ranked)
	f.saved[taskID] = cp
	return nil
}

func (f *fakeStore) LoadByTask(_ context.Context, taskID int) ([]RankedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.saved[taskID], nil
}

func (f *fakeStore) TasksForUser(_ context.Context, userID int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCalls++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	var tasks []int
	for taskID, ranked := range f.saved {
		for _, r := range ranked {
			if r.UserID == userID {
				tasks = append(tasks, taskID)
				break
			}
		}
	}
	sort.Ints(tasks)
	return tasks, nil
}

func (f *fakeStore) TaskIDs(_ context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	var ids []int
	for id := range f.saved {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

type refreshCall struct {
	taskID  int
	ranked  []RankedUser
	removed []int
}

type fakeCache struct {
	mu         sync.Mutex
	entries    map[int][]RankedUser
	userTasks  map[int]map[int]bool
	calls      []refreshCall
	getErr     error
	refreshErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries:   make(map[int][]RankedUser),
		userTasks: make(map[int]map[int]bool),
	}
}

func (f *fakeCache) Refresh(_ context.Context, taskID int, ranked []RankedUser, removed []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return f.refreshErr
	}
	f.calls = append(f.calls, refreshCall{taskID: taskID, ranked: ranked, removed: removed})
	cp := make([]RankedUser, len(ranked))
	copy(cp, ranked)
	f.entries[taskID] = cp
	for _, r := range ranked {
		if f.userTasks[r.UserID] == nil {
			f.userTasks[r.UserID] = make(map[int]bool)
		}
		f.userTasks[r.UserID][taskID] = true
	}
	for _, uid := range removed {
		delete(f.userTasks[uid], taskID)
	}
	return nil
}

func (f *fakeCache) GetByTask(_ context.Context, taskID int) ([]RankedUser, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	entry, ok := f.entries[taskID]
	return entry, ok, nil
}

func (f *fakeCache) GetTasksForUser(_ context.Context, userID int) ([]int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	set := f.userTasks[userID]
	if len(set) == 0 {
		return nil, false, nil
	}
	var tasks []int
	for id := range set {
		tasks = append(tasks, id)
	}
	sort.Ints(tasks)
	return tasks, true, nil
}

func TestSaveWritesEveryLayer(t *testing.T) {
	store := newFakeStore()
	cache := newFakeCache()
	repo := NewRepository(store, cache, zerolog.Nop())
	ctx := context.Background()

	ranked := []RankedUser{{UserID: 2, Score: 306}, {UserID: 1, Score: 304}}
	repo.Save(ctx, 7, ranked)

	assert.Equal(t, ranked, store.saved[7])
	assert.Equal(t, ranked, cache.entries[7])

	mirror, err := repo.mirror.LoadByTask(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, ranked, mirror)
}

func TestSavePassesRemovedUsersToCache(t *testing.T) {
	store := newFakeStore()
	cache := newFakeCache()
	repo := NewRepository(store, cache, zerolog.Nop())
	ctx := context.Background()

	repo.Save(ctx, 7, []RankedUser{{UserID: 1, Score: 300}, {UserID: 2, Score: 299}})
	repo.Save(ctx, 7, []RankedUser{{UserID: 2, Score: 305}, {UserID: 3, Score: 301}})

	require.Len(t, cache.calls, 2)
	assert.Empty(t, cache.calls[0].removed)
	assert.Equal(t, []int{1}, cache.calls[1].removed, "users no longer eligible are dropped from the per-user index")
}

func TestSaveDegradesToMemoryWhenBackendsFail(t *testing.T) {
	store := newFakeStore()
	store.saveErr = errors.New("pg down")
	store.loadErr = errors.New("pg down")
	cache := newFakeCache()
	cache.refreshErr = errors.New("redis down")
	cache.getErr = errors.New("redis down")

	repo := NewRepository(store, cache, zerolog.Nop())
	ctx := context.Background()

	ranked := []RankedUser{{UserID: 9, Score: 310}}
	repo.Save(ctx, 3, ranked)

	got := repo.LoadByTask(ctx, 3)
	assert.Equal(t, ranked, got, "in-memory fallback serves the result")

	tasks := repo.TasksForUser(ctx, 9)
	assert.Equal(t, []int{3}, tasks)
}

func TestLoadByTaskPrefersCache(t *testing.T) {
	store := newFakeStore()
	cache := newFakeCache()
	repo := NewRepository(store, cache, zerolog.Nop())
	ctx := context.Background()

	cached := []RankedUser{{UserID: 5, Score: 299}}
	require.NoError(t, cache.Refresh(ctx, 1, cached, nil))

	got := repo.LoadByTask(ctx, 1)
	assert.Equal(t, cached, got)
	assert.Equal(t, 0, store.loadCalls, "cache hit must not touch the store")
}

func TestLoadByTaskFallsBackToStoreOnMiss(t *testing.T) {
	store := newFakeStore()
	cache := newFakeCache()
	repo := NewRepository(store, cache, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 4, []RankedUser{{UserID: 8, Score: 290}}))

	got := repo.LoadByTask(ctx, 4)
	assert.Equal(t, []RankedUser{{UserID: 8, Score: 290}}, got)
	assert.Equal(t, 1, store.loadCalls)
}

func TestLoadByTaskStoreAnswerBeatsStaleMirror(t *testing.T) {
	store := newFakeStore()
	repo := NewRepository(store, nil, zerolog.Nop())
	ctx := context.Background()

	// Mirror holds an older result; the reachable store says empty.
	repo.mirror.Replace(2, []RankedUser{{UserID: 1, Score: 300}})

	got := repo.LoadByTask(ctx, 2)
	assert.Empty(t, got, "a reachable store is authoritative even when empty")
}

func TestTasksForUserChain(t *testing.T) {
	store := newFakeStore()
	cache := newFakeCache()
	repo := NewRepository(store, cache, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 11, []RankedUser{{UserID: 6, Score: 300}}))
	require.NoError(t, store.Save(ctx, 12, []RankedUser{{UserID: 6, Score: 300}}))

	tasks := repo.TasksForUser(ctx, 6)
	assert.Equal(t, []int{11, 12}, tasks, "cache empty set misses through to the store")

	// Populate the cache; reads now stop at it.
	require.NoError(t, cache.Refresh(ctx, 11, []RankedUser{{UserID: 6, Score: 300}}, nil))
	before := store.loadCalls
	tasks = repo.TasksForUser(ctx, 6)
	assert.Equal(t, []int{11}, tasks)
	assert.Equal(t, before, store.loadCalls)
}

func TestBreakerSkipsFailingStore(t *testing.T) {
	store := newFakeStore()
	store.loadErr = errors.New("pg down")
	repo := NewRepository(store, nil, zerolog.Nop())
	ctx := context.Background()

	// Default breaker opens after 5 consecutive failures.
	for i := 0; i < 5; i++ {
		repo.LoadByTask(ctx, 1)
	}
	assert.Equal(t, BreakerOpen, repo.BreakerState())
	assert.Equal(t, 5, store.loadCalls)

	repo.LoadByTask(ctx, 1)
	repo.LoadByTask(ctx, 1)
	assert.Equal(t, 5, store.loadCalls, "open breaker skips the store entirely")
}

func TestWarmPopulatesCacheAndMirror(t *testing.T) {
	store := newFakeStore()
	cache := newFakeCache()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, 1, []RankedUser{{UserID: 1, Score: 300}}))
	require.NoError(t, store.Save(ctx, 2, []RankedUser{{UserID: 2, Score: 301}}))

	repo := NewRepository(store, cache, zerolog.Nop())
	warmed, err := repo.Warm(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, warmed)

	assert.Len(t, cache.entries, 2)
	mirror, err := repo.mirror.LoadByTask(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []RankedUser{{UserID: 2, Score: 301}}, mirror)
}

func TestWarmWithoutStore(t *testing.T) {
	repo := NewRepository(nil, newFakeCache(), zerolog.Nop())

	_, err := repo.Warm(context.Background(), 4)
	assert.Error(t, err)
}
