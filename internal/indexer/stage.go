package indexer

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/logger"
)

// IndexedHook is told about every chunk the index stage commits.
type IndexedHook func(ctx context.Context, ev ChunkIndexed)

// Stage returns the pipeline stage that merges URLS_UPDATED batches into the
// index and moves them to INDEXED. Hooks run only after the status commit,
// so a chunk that fails to commit is never announced.
func (e *Engine) Stage(hooks ...IndexedHook) pipeline.Stage {
	var last Result
	return pipeline.Stage{
		Name: "index",
		From: batch.StatusURLsUpdated,
		To:   batch.StatusIndexed,
		Process: func(ctx context.Context, batches []batch.HashedBatch) error {
			res, err := e.IndexBatches(ctx, batches)
			if err != nil {
				return err
			}
			last = res
			return nil
		},
		Committed: func(ctx context.Context, runID string, batches []batch.HashedBatch) {
			if len(hooks) == 0 {
				return
			}
			ev, err := NewChunkIndexed(runID, batches, last)
			if err != nil {
				logger.FromContext(ctx).Error("building chunk event", "error", err)
				return
			}
			for _, hook := range hooks {
				hook(ctx, ev)
			}
		},
	}
}
