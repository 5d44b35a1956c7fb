package eligibility

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore holds eligibility results in process memory. It is the
// last-resort fallback when the persistent backends are unreachable and is
// also usable as a full Store in tests. Contents do not survive a restart;
// that loss is an accepted degradation.
type MemoryStore struct {
	mu          sync.RWMutex
	byTask      map[int][]RankedUser
	tasksByUser map[int]map[int]struct{}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byTask:      make(map[int][]RankedUser),
		tasksByUser: make(map[int]map[int]struct{}),
	}
}

// Replace swaps the task's result in a single write and returns the users
// that were eligible before but are not anymore. The whole entry is replaced
// under one lock so readers never observe a partial result.
func (m *MemoryStore) Replace(taskID int, ranked []RankedUser) (removed []int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[int]struct{}, len(ranked))
	for _, r := range ranked {
		next[r.UserID] = struct{}{}
	}

	for _, prev := range m.byTask[taskID] {
		if _, still := next[prev.UserID]; !still {
			removed = append(removed, prev.UserID)
			if tasks := m.tasksByUser[prev.UserID]; tasks != nil {
				delete(tasks, taskID)
				if len(tasks) == 0 {
					delete(m.tasksByUser, prev.UserID)
				}
			}
		}
	}

	entry := make([]RankedUser, len(ranked))
	copy(entry, ranked)
	m.byTask[taskID] = entry

	for _, r := range ranked {
		tasks, ok := m.tasksByUser[r.UserID]
		if !ok {
			tasks = make(map[int]struct{})
			m.tasksByUser[r.UserID] = tasks
		}
		tasks[taskID] = struct{}{}
	}
	return removed
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, taskID int, ranked []RankedUser) error {
	m.Replace(taskID, ranked)
	return nil
}

// LoadByTask implements Store. Unknown tasks yield an empty result.
func (m *MemoryStore) LoadByTask(_ context.Context, taskID int) ([]RankedUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry := m.byTask[taskID]
	out := make([]RankedUser, len(entry))
	copy(out, entry)
	return out, nil
}

// TasksForUser implements Store. Task IDs are sorted ascending.
func (m *MemoryStore) TasksForUser(_ context.Context, userID int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := m.tasksByUser[userID]
	out := make([]int, 0, len(tasks))
	for id := range tasks {
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

// TaskIDs implements Store.
func (m *MemoryStore) TaskIDs(_ context.Context) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]int, 0, len(m.byTask))
	for id := range m.byTask {
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}
