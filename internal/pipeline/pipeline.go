// Package pipeline moves stored crawl batches through their processing
// stages. Each run takes one chunk of batches in a stage's source status,
// processes the whole chunk and only then advances every batch in it. A
// chunk that fails keeps its status and is picked up again by a later run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/resilience"
)

// DefaultChunkSize bounds how many batches one run processes.
const DefaultChunkSize = 10000

// Source supplies batches by status and records status transitions.
type Source interface {
	FetchChunk(ctx context.Context, status batch.Status, limit int) ([]batch.HashedBatch, error)
	Advance(ctx context.Context, ids []string, from, to batch.Status) (int64, error)
}

// ProcessFunc handles one chunk. It must honour ctx cancellation.
type ProcessFunc func(ctx context.Context, batches []batch.HashedBatch) error

// Stage is one status transition and the work that earns it.
type Stage struct {
	Name    string
	From    batch.Status
	To      batch.Status
	Process ProcessFunc
	// Committed, when set, is called after a chunk has been advanced.
	Committed func(ctx context.Context, runID string, batches []batch.HashedBatch)
}

// Options tunes a Runner.
type Options struct {
	ChunkSize    int
	ChunkTimeout time.Duration
	Retry        resilience.RetryConfig
	Metrics      *metrics.Metrics
}

// Runner executes stages against a Source.
type Runner struct {
	source  Source
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewRunner(source Source, opts Options) *Runner {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Runner{
		source:  source,
		opts:    opts,
		metrics: opts.Metrics,
		logger:  slog.Default().With("component", "pipeline"),
	}
}

// Run processes one chunk of stage and returns how many batches were
// advanced. Zero with a nil error means nothing was waiting.
func (r *Runner) Run(ctx context.Context, stage Stage) (int64, error) {
	if err := batch.CheckTransition(stage.From, stage.To); err != nil {
		return 0, err
	}
	runID := uuid.NewString()
	ctx = logger.With(logger.WithRunID(ctx, runID), "stage", stage.Name)
	log := logger.FromContext(ctx).With("component", "pipeline")

	batches, err := r.source.FetchChunk(ctx, stage.From, r.opts.ChunkSize)
	if err != nil {
		return 0, fmt.Errorf("fetching %s batches: %w", stage.From, err)
	}
	if len(batches) == 0 {
		r.count(stage, "empty")
		log.Debug("no batches waiting", "status", stage.From.String())
		return 0, nil
	}

	start := time.Now()
	log.Info("processing chunk", "batches", len(batches), "from", stage.From.String())
	err = resilience.WithTimeout(ctx, r.opts.ChunkTimeout, stage.Name, func(ctx context.Context) error {
		return stage.Process(ctx, batches)
	})
	if r.metrics != nil {
		r.metrics.ChunkDuration.WithLabelValues(stage.Name).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		r.count(stage, "failed")
		log.Error("chunk failed, status left unchanged", "batches", len(batches), "error", err)
		return 0, fmt.Errorf("processing %s chunk: %w", stage.Name, err)
	}

	ids := batch.IDs(batches)
	var moved int64
	err = resilience.Retry(ctx, stage.Name+"-commit", r.opts.Retry, func(ctx context.Context) error {
		n, err := r.source.Advance(ctx, ids, stage.From, stage.To)
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			return resilience.Permanent(err)
		}
		moved = n
		return err
	})
	if err != nil {
		r.count(stage, "failed")
		return 0, fmt.Errorf("committing %s chunk: %w", stage.Name, err)
	}
	r.count(stage, "committed")
	if r.metrics != nil {
		r.metrics.BatchTransitions.WithLabelValues(stage.From.String(), stage.To.String()).Add(float64(moved))
	}
	log.Info("chunk committed",
		"batches", len(batches),
		"advanced", moved,
		"to", stage.To.String(),
		"duration", time.Since(start),
	)
	if stage.Committed != nil {
		stage.Committed(ctx, runID, batches)
	}
	return moved, nil
}

// Loop runs the stages in order until ctx is done. A stage is run again
// straight away while it keeps finding full chunks; otherwise the loop
// sleeps for interval. Errors are logged and retried on the next round.
func (r *Runner) Loop(ctx context.Context, interval time.Duration, stages ...Stage) {
	for {
		for _, stage := range stages {
			for ctx.Err() == nil {
				moved, err := r.Run(ctx, stage)
				if err != nil {
					r.logger.Error("stage run failed", "stage", stage.Name, "error", err)
					break
				}
				if moved < int64(r.opts.ChunkSize) {
					break
				}
			}
		}
		select {
		case <-ctx.Done():
			r.logger.Info("pipeline loop stopped")
			return
		case <-time.After(interval):
		}
	}
}

func (r *Runner) count(stage Stage, outcome string) {
	if r.metrics != nil {
		r.metrics.ChunksTotal.WithLabelValues(stage.Name, outcome).Inc()
	}
}
