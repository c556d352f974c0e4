package batch

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps batches in memory. It backs one-off local indexing runs
// and tests.
type MemoryStore struct {
	mu      sync.Mutex
	batches map[string]HashedBatch
	status  map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches: make(map[string]HashedBatch),
		status:  make(map[string]Status),
	}
}

// Upsert stores b unless a batch with the same id exists.
func (m *MemoryStore) Upsert(_ context.Context, b HashedBatch, status Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := b.EnsureID()
	if _, ok := m.batches[id]; ok {
		return false, nil
	}
	m.batches[id] = b
	m.status[id] = status
	return true, nil
}

func (m *MemoryStore) FetchChunk(_ context.Context, status Status, limit int) ([]HashedBatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HashedBatch
	for id, b := range m.batches {
		if m.status[id] == status {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Advance(_ context.Context, ids []string, from, to Status) (int64, error) {
	if err := CheckTransition(from, to); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var moved int64
	for _, id := range ids {
		if st, ok := m.status[id]; ok && st == from {
			m.status[id] = to
			moved++
		}
	}
	return moved, nil
}

// Status reports the stored status of id.
func (m *MemoryStore) Status(id string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[id]
	return st, ok
}
