package urls

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
)

// FoundURL is what one processing run learned about a URL.
type FoundURL struct {
	URL        string
	Domain     string
	UserIDHash string
	Score      float64
	Status     Status
	Timestamp  time.Time
}

// Store persists found URLs.
type Store interface {
	Record(ctx context.Context, found []FoundURL) (int, error)
}

// Scoring weights the links discovered on a crawled page.
type Scoring struct {
	SameDomain      float64
	DifferentDomain float64
	RootPath        float64
	ExtraLink       float64
}

// DefaultScoring favours links that leave the crawled domain.
var DefaultScoring = Scoring{
	SameDomain:      0.01,
	DifferentDomain: 1.0,
	RootPath:        5.0,
	ExtraLink:       0.1,
}

// Recorder moves batches from LOCAL to URLS_UPDATED: it records the crawl
// outcome of every item and scores the links each crawled page points to.
type Recorder struct {
	store   Store
	scoring Scoring
	blocked map[string]struct{}
	logger  *slog.Logger
}

func NewRecorder(store Store, scoring Scoring, blockedDomains []string) *Recorder {
	blocked := make(map[string]struct{}, len(blockedDomains))
	for _, d := range blockedDomains {
		blocked[strings.ToLower(d)] = struct{}{}
	}
	return &Recorder{
		store:   store,
		scoring: scoring,
		blocked: blocked,
		logger:  slog.Default().With("component", "url-recorder"),
	}
}

// Process records the URLs of batches. It matches the pipeline's process
// signature.
func (r *Recorder) Process(ctx context.Context, batches []batch.HashedBatch) error {
	found := r.Collect(batches)
	if len(found) == 0 {
		return nil
	}
	n, err := r.store.Record(ctx, found)
	if err != nil {
		return fmt.Errorf("recording %d urls: %w", len(found), err)
	}
	r.logger.Info("urls recorded", "batches", len(batches), "urls", len(found), "stored", n)
	return nil
}

// Collect folds the items of batches into one FoundURL per URL, in the order
// URLs were first seen.
func (r *Recorder) Collect(batches []batch.HashedBatch) []FoundURL {
	var order []string
	byURL := make(map[string]*FoundURL)
	get := func(url, domain string) *FoundURL {
		f, ok := byURL[url]
		if !ok {
			f = &FoundURL{URL: url, Domain: domain, Status: StatusNew}
			byURL[url] = f
			order = append(order, url)
		}
		return f
	}

	for _, b := range batches {
		for _, item := range b.Items {
			ts := time.UnixMilli(item.Timestamp).UTC()
			domain, err := GetDomain(item.URL)
			if err != nil {
				r.logger.Info("skipping unparseable url", "url", item.URL)
				continue
			}
			f := get(item.URL, domain)
			f.UserIDHash, f.Timestamp = b.UserIDHash, ts
			if item.Content == nil {
				f.Status = ErrorStatus(item)
				continue
			}
			f.Status = StatusCrawled

			for _, link := range item.Content.Links {
				r.scoreLink(get, b.UserIDHash, domain, link, ts, false)
			}
			for _, link := range item.Content.ExtraLinks {
				r.scoreLink(get, b.UserIDHash, domain, link, ts, true)
			}
		}
	}

	out := make([]FoundURL, 0, len(order))
	for _, url := range order {
		out = append(out, *byURL[url])
	}
	return out
}

func (r *Recorder) scoreLink(get func(url, domain string) *FoundURL, user, crawledDomain, link string, ts time.Time, extra bool) {
	parsed, err := ParseURL(link)
	if err != nil || parsed.Netloc == "" {
		r.logger.Debug("skipping unparseable link", "link", link)
		return
	}
	if r.isBlocked(parsed.Netloc) {
		return
	}
	weight := r.scoring.DifferentDomain
	if parsed.Netloc == crawledDomain {
		weight = r.scoring.SameDomain
	}
	if extra {
		weight *= r.scoring.ExtraLink
	}
	f := get(link, parsed.Netloc)
	f.Score += weight
	f.UserIDHash, f.Timestamp = user, ts

	root := get(parsed.Root(), parsed.Netloc)
	root.Score += r.scoring.RootPath
	root.UserIDHash, root.Timestamp = user, ts
}

// isBlocked matches the domain and each of its parent domains.
func (r *Recorder) isBlocked(domain string) bool {
	if len(r.blocked) == 0 {
		return false
	}
	domain = strings.ToLower(domain)
	for {
		if _, ok := r.blocked[domain]; ok {
			return true
		}
		i := strings.IndexByte(domain, '.')
		if i < 0 {
			return false
		}
		domain = domain[i+1:]
	}
}
