package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/resilience"
)

func seed(t *testing.T, n int, status batch.Status) *batch.MemoryStore {
	t.Helper()
	store := batch.NewMemoryStore()
	for i := 0; i < n; i++ {
		_, err := store.Upsert(context.Background(), batch.HashedBatch{ID: fmt.Sprintf("b%02d", i), Timestamp: int64(i)}, status)
		require.NoError(t, err)
	}
	return store
}

func statuses(store *batch.MemoryStore, n int) []batch.Status {
	out := make([]batch.Status, n)
	for i := range out {
		out[i], _ = store.Status(fmt.Sprintf("b%02d", i))
	}
	return out
}

func repeat(s batch.Status, n int) []batch.Status {
	out := make([]batch.Status, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func indexStage(process ProcessFunc) Stage {
	return Stage{Name: "index", From: batch.StatusURLsUpdated, To: batch.StatusIndexed, Process: process}
}

func TestRunFailedChunkKeepsStatus(t *testing.T) {
	store := seed(t, 3, batch.StatusURLsUpdated)
	r := NewRunner(store, Options{ChunkSize: 10})

	moved, err := r.Run(context.Background(), indexStage(func(context.Context, []batch.HashedBatch) error {
		return errors.New("merge failed")
	}))

	assert.Error(t, err)
	assert.Zero(t, moved)
	assert.Equal(t, repeat(batch.StatusURLsUpdated, 3), statuses(store, 3))
}

func TestRunRetryAfterFailureAdvancesOnce(t *testing.T) {
	store := seed(t, 3, batch.StatusURLsUpdated)
	r := NewRunner(store, Options{ChunkSize: 10})
	calls := 0
	stage := indexStage(func(_ context.Context, batches []batch.HashedBatch) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		assert.Len(t, batches, 3)
		return nil
	})

	_, err := r.Run(context.Background(), stage)
	require.Error(t, err)
	moved, err := r.Run(context.Background(), stage)
	require.NoError(t, err)
	assert.Equal(t, int64(3), moved)
	assert.Equal(t, repeat(batch.StatusIndexed, 3), statuses(store, 3))

	moved, err = r.Run(context.Background(), stage)
	require.NoError(t, err)
	assert.Zero(t, moved)
	assert.Equal(t, 2, calls)
}

func TestRunRespectsChunkSize(t *testing.T) {
	store := seed(t, 5, batch.StatusLocal)
	r := NewRunner(store, Options{ChunkSize: 2})
	var committed []string
	stage := Stage{
		Name: "urls", From: batch.StatusLocal, To: batch.StatusURLsUpdated,
		Process: func(context.Context, []batch.HashedBatch) error { return nil },
		Committed: func(_ context.Context, runID string, batches []batch.HashedBatch) {
			assert.NotEmpty(t, runID)
			committed = append(committed, batch.IDs(batches)...)
		},
	}

	moved, err := r.Run(context.Background(), stage)
	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)
	assert.Equal(t, []string{"b00", "b01"}, committed)
	assert.Equal(t, []batch.Status{
		batch.StatusURLsUpdated, batch.StatusURLsUpdated,
		batch.StatusLocal, batch.StatusLocal, batch.StatusLocal,
	}, statuses(store, 5))
}

func TestRunTimeoutKeepsStatus(t *testing.T) {
	store := seed(t, 2, batch.StatusURLsUpdated)
	r := NewRunner(store, Options{ChunkTimeout: 10 * time.Millisecond})

	_, err := r.Run(context.Background(), indexStage(func(ctx context.Context, _ []batch.HashedBatch) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	assert.ErrorIs(t, err, apperrors.ErrTimeout)
	assert.Equal(t, repeat(batch.StatusURLsUpdated, 2), statuses(store, 2))
}

type flakySource struct {
	*batch.MemoryStore
	failures int
}

func (f *flakySource) Advance(ctx context.Context, ids []string, from, to batch.Status) (int64, error) {
	if f.failures > 0 {
		f.failures--
		return 0, errors.New("connection reset")
	}
	return f.MemoryStore.Advance(ctx, ids, from, to)
}

func TestRunRetriesCommit(t *testing.T) {
	src := &flakySource{MemoryStore: seed(t, 2, batch.StatusURLsUpdated), failures: 2}
	r := NewRunner(src, Options{Retry: resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}})
	processed := 0

	moved, err := r.Run(context.Background(), indexStage(func(context.Context, []batch.HashedBatch) error {
		processed++
		return nil
	}))

	require.NoError(t, err)
	assert.Equal(t, int64(2), moved)
	assert.Equal(t, 1, processed)
}

func TestRunRejectsBackwardStage(t *testing.T) {
	r := NewRunner(batch.NewMemoryStore(), Options{})
	_, err := r.Run(context.Background(), Stage{Name: "bad", From: batch.StatusIndexed, To: batch.StatusLocal})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestLoopDrainsAndStops(t *testing.T) {
	store := seed(t, 5, batch.StatusLocal)
	r := NewRunner(store, Options{ChunkSize: 2})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	urls := Stage{Name: "urls", From: batch.StatusLocal, To: batch.StatusURLsUpdated,
		Process: func(context.Context, []batch.HashedBatch) error { return nil }}
	index := indexStage(func(context.Context, []batch.HashedBatch) error { return nil })

	go func() {
		r.Loop(ctx, time.Hour, urls, index)
		close(done)
	}()

	require.Eventually(t, func() bool {
		for _, st := range statuses(store, 5) {
			if st != batch.StatusIndexed {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
