package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/pipeline"
)

func TestStageIndexesAndAnnouncesChunk(t *testing.T) {
	ctx := context.Background()
	source := batch.NewMemoryStore()
	_, err := source.Upsert(ctx, batch.HashedBatch{ID: "b1", UserIDHash: "u", Timestamp: 1, Items: []batch.Item{
		{URL: "https://a.com", Content: &batch.ItemContent{Title: "alpha beta"}},
	}}, batch.StatusURLsUpdated)
	require.NoError(t, err)

	store := newMemStore(5)
	e := NewEngine(store, urlRanker{}, wordTokenizer{}, Options{})
	var events []ChunkIndexed
	stage := e.Stage(func(_ context.Context, ev ChunkIndexed) {
		events = append(events, ev)
	})

	moved, err := pipeline.NewRunner(source, pipeline.Options{ChunkSize: 10}).Run(ctx, stage)
	require.NoError(t, err)
	assert.EqualValues(t, 1, moved)

	status, _ := source.Status("b1")
	assert.Equal(t, batch.StatusIndexed, status)

	require.Len(t, events, 1)
	assert.Equal(t, []string{"b1"}, events[0].BatchIDs)
	assert.Equal(t, 1, events[0].Documents)
	pages, err := events[0].TouchedPages()
	require.NoError(t, err)
	assert.True(t, pages.Contains(uint32(store.Locate("alpha"))))
	assert.True(t, pages.Contains(uint32(store.Locate("beta"))))
}

func TestStageFailureSkipsHooks(t *testing.T) {
	ctx := context.Background()
	source := batch.NewMemoryStore()
	_, err := source.Upsert(ctx, batch.HashedBatch{ID: "b1", UserIDHash: "u", Timestamp: 1, Items: []batch.Item{
		{URL: "https://a.com", Content: &batch.ItemContent{Title: "alpha"}},
	}}, batch.StatusURLsUpdated)
	require.NoError(t, err)

	store := newMemStore(1)
	store.failOn = 0
	called := false
	stage := NewEngine(store, urlRanker{}, wordTokenizer{}, Options{}).Stage(func(context.Context, ChunkIndexed) {
		called = true
	})

	_, err = pipeline.NewRunner(source, pipeline.Options{ChunkSize: 10}).Run(ctx, stage)
	require.Error(t, err)
	assert.False(t, called)
	status, _ := source.Status("b1")
	assert.Equal(t, batch.StatusURLsUpdated, status)
}
