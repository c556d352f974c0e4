// Package pagecache keeps decoded pages in Redis for the read-only admin
// API. Entries are dropped when a committed chunk touches their page.
package pagecache

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	gojson "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
)

const keyPrefix = "page:"

// Backend stores encoded pages. *redis.Client satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Reader is the page store being cached.
type Reader interface {
	NumPages() int
	Locate(term string) int
	ReadPage(page int) (index.Page, error)
}

// Cache is a read-through page cache. A failing backend only costs a cache
// miss; reads always fall back to the page store.
type Cache struct {
	pages   Reader
	backend Backend
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a Cache in front of pages. prefix namespaces the keys of one
// index file.
func New(pages Reader, backend Backend, prefix string, ttl time.Duration) *Cache {
	return &Cache{
		pages:   pages,
		backend: backend,
		prefix:  prefix + keyPrefix,
		ttl:     ttl,
		timeout: 250 * time.Millisecond,
		logger:  slog.Default().With("component", "page-cache"),
	}
}

func (c *Cache) NumPages() int { return c.pages.NumPages() }

func (c *Cache) Locate(term string) int { return c.pages.Locate(term) }

// ReadPage returns page from the cache, reading and caching it on a miss.
// Concurrent misses for the same page share one read.
func (c *Cache) ReadPage(page int) (index.Page, error) {
	key := c.key(page)
	if cached, ok := c.get(key); ok {
		return cached, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.get(key); ok {
			return cached, nil
		}
		postings, err := c.pages.ReadPage(page)
		if err != nil {
			return nil, err
		}
		c.set(key, postings)
		return postings, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(index.Page), nil
}

// Invalidate drops the cached copies of pages.
func (c *Cache) Invalidate(ctx context.Context, pages *roaring.Bitmap) error {
	if pages == nil || pages.IsEmpty() {
		return nil
	}
	keys := make([]string, 0, pages.GetCardinality())
	it := pages.Iterator()
	for it.HasNext() {
		keys = append(keys, c.key(int(it.Next())))
	}
	if err := c.backend.Del(ctx, keys...); err != nil {
		return fmt.Errorf("invalidating %d cached pages: %w", len(keys), err)
	}
	c.logger.Debug("pages invalidated", "pages", len(keys))
	return nil
}

// Stats returns the hit and miss counts since the cache was created.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) get(key string) (index.Page, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}
	var page index.Page
	if err := gojson.Unmarshal(data, &page); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return page, true
}

func (c *Cache) set(key string, page index.Page) {
	data, err := gojson.Marshal(page)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) key(page int) string {
	return c.prefix + strconv.Itoa(page)
}
