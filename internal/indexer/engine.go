// Package indexer merges freshly crawled documents into the paged index.
// Documents are tokenized, filed on the page of each of their terms and
// merged with what the page already holds: curated postings stay first,
// each term's postings are re-ranked and terms are interleaved round robin
// before duplicates are removed.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/pagelock"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/metrics"
)

// PageStore is the paged index the engine reads and rewrites.
type PageStore interface {
	Locator
	ReadPage(page int) (index.Page, error)
	WritePage(page int, postings index.Page) (int, error)
}

// Options tunes an Engine. Zero values select single-threaded merging
// without locks or metrics.
type Options struct {
	Workers       int
	ProgressEvery int
	Locker        pagelock.Locker
	Metrics       *metrics.Metrics
}

type Engine struct {
	store         PageStore
	ranker        Ranker
	tokenizer     Tokenizer
	locker        pagelock.Locker
	workers       int
	progressEvery int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func NewEngine(store PageStore, ranker Ranker, tok Tokenizer, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Locker == nil {
		if opts.Workers > 1 {
			opts.Locker = pagelock.NewLocal(pagelock.DefaultStripes)
		} else {
			opts.Locker = pagelock.Nop{}
		}
	}
	return &Engine{
		store:         store,
		ranker:        ranker,
		tokenizer:     tok,
		locker:        opts.Locker,
		workers:       opts.Workers,
		progressEvery: opts.ProgressEvery,
		metrics:       opts.Metrics,
		logger:        slog.Default().With("component", "indexer"),
	}
}

// Result summarizes one indexing run.
type Result struct {
	Documents int
	Postings  int
	Pages     *roaring.Bitmap
	Stored    int
	Dropped   int
	Truncated int
}

// PageStats summarizes the merge of one page.
type PageStats struct {
	Existing  int
	New       int
	Stored    int
	Dropped   int
	Truncated int
}

// IndexBatches indexes every indexable item of batches.
func (e *Engine) IndexBatches(ctx context.Context, batches []batch.HashedBatch) (Result, error) {
	docs := DocumentsFromBatches(batches)
	if e.metrics != nil {
		e.metrics.DocumentsExtracted.Add(float64(len(docs)))
	}
	return e.IndexDocuments(ctx, docs)
}

// IndexDocuments tokenizes docs and merges the resulting postings into every
// page they touch. Pages are merged in ascending order, several at a time
// when the engine has more than one worker. The first failing page stops the
// run; pages already written stay written.
func (e *Engine) IndexDocuments(ctx context.Context, docs []index.Document) (Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "indexer")

	pp, err := e.Preprocess(ctx, docs)
	if err != nil {
		return Result{}, fmt.Errorf("preprocessing documents: %w", err)
	}
	if e.metrics != nil {
		e.metrics.PostingsProduced.Add(float64(pp.Total()))
	}
	res := Result{Documents: len(docs), Postings: pp.Total(), Pages: pp.Pages()}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	it := pp.Pages().Iterator()
	for it.HasNext() {
		page := int(it.Next())
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			stats, err := e.MergePage(gctx, page, pp.Postings(page))
			if err != nil {
				return err
			}
			mu.Lock()
			res.Stored += stats.Stored
			res.Dropped += stats.Dropped
			res.Truncated += stats.Truncated
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	log.Info("indexed documents",
		"documents", res.Documents,
		"pages", pp.Len(),
		"postings", res.Postings,
		"stored", res.Stored,
		"dropped", res.Dropped,
		"truncated", res.Truncated,
		"duration", time.Since(start),
	)
	return res, nil
}

// MergePage merges postings into page under the page lock: it reads the
// page, drops organic postings that do not belong to it, merges, removes
// duplicates and writes the result back.
func (e *Engine) MergePage(ctx context.Context, page int, postings index.Page) (PageStats, error) {
	if err := ctx.Err(); err != nil {
		return PageStats{}, err
	}
	start := time.Now()
	unlock, err := e.locker.Lock(ctx, page)
	if err != nil {
		return PageStats{}, fmt.Errorf("locking page %d: %w", page, err)
	}
	defer unlock()

	existing, err := e.store.ReadPage(page)
	if err != nil {
		return PageStats{}, fmt.Errorf("reading page %d: %w", page, err)
	}
	valid, stale := onPage(existing, e.tokenizer, e.store, page)
	merged, duplicates := MergePostings(postings, valid, e.ranker)

	stored, err := e.store.WritePage(page, merged)
	if err != nil {
		return PageStats{}, fmt.Errorf("writing page %d: %w", page, err)
	}
	stats := PageStats{
		Existing:  len(existing),
		New:       len(postings),
		Stored:    stored,
		Dropped:   stale + duplicates,
		Truncated: len(merged) - stored,
	}
	e.record(stats, stale, duplicates, time.Since(start))
	e.logger.Debug("page merged",
		"page", page,
		"existing", stats.Existing,
		"new", stats.New,
		"stored", stats.Stored,
		"dropped", stats.Dropped,
		"truncated", stats.Truncated,
	)
	return stats, nil
}

// RepairPage ties term-less organic postings of page to a term, drops those
// that cannot be tied or belong to another page, and rewrites the page if
// anything changed.
func (e *Engine) RepairPage(ctx context.Context, page int) (PageStats, error) {
	unlock, err := e.locker.Lock(ctx, page)
	if err != nil {
		return PageStats{}, fmt.Errorf("locking page %d: %w", page, err)
	}
	defer unlock()

	existing, err := e.store.ReadPage(page)
	if err != nil {
		return PageStats{}, fmt.Errorf("reading page %d: %w", page, err)
	}
	valid, dropped := onPage(existing, e.tokenizer, e.store, page)
	stats := PageStats{Existing: len(existing), Stored: len(existing), Dropped: dropped}
	if dropped == 0 && samePostings(existing, valid) {
		return stats, nil
	}
	stored, err := e.store.WritePage(page, valid)
	if err != nil {
		return PageStats{}, fmt.Errorf("writing page %d: %w", page, err)
	}
	stats.Stored = stored
	stats.Truncated = len(valid) - stored
	if e.metrics != nil {
		e.metrics.PostingsDropped.WithLabelValues(metrics.DropTermNotOnPage).Add(float64(dropped))
		e.metrics.PagesWritten.Inc()
	}
	return stats, nil
}

func (e *Engine) record(stats PageStats, stale, duplicates int, took time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.PagesWritten.Inc()
	e.metrics.PageMergeDuration.Observe(took.Seconds())
	e.metrics.PostingsDropped.WithLabelValues(metrics.DropTermNotOnPage).Add(float64(stale))
	e.metrics.PostingsDropped.WithLabelValues(metrics.DropDuplicate).Add(float64(duplicates))
	e.metrics.PostingsDropped.WithLabelValues(metrics.DropCapacity).Add(float64(stats.Truncated))
}

func samePostings(a, b index.Page) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
