// Package ranker orders candidate postings for a query. The same ranker is
// used when merging pages at index time and when answering live lookups.
package ranker

import (
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/urls"
)

const (
	titleWeight   = 1.5
	extractWeight = 0.3
	urlWeight     = 0.3
	domainWeight  = 0.6

	DefaultThreshold  = 0.0
	DefaultMaxResults = 30
)

// Scored pairs a posting with its relevance.
type Scored struct {
	Posting index.Posting
	Score   float64
}

// HeuristicRanker scores postings by how many query words appear in the
// title, extract, URL and domain, plus the posting's prior score.
type HeuristicRanker struct {
	// Threshold drops live results scoring at or below it.
	Threshold float64
	// MaxResults caps live results; zero means no cap.
	MaxResults int
}

// New returns a ranker with the default live-query limits.
func New() *HeuristicRanker {
	return &HeuristicRanker{Threshold: DefaultThreshold, MaxResults: DefaultMaxResults}
}

// Order returns candidates sorted by descending score. Ties keep their input
// order. In indexing mode every candidate is returned; otherwise results are
// filtered by Threshold and capped at MaxResults.
func (r *HeuristicRanker) Order(queryWords []string, candidates index.Page, indexing bool) index.Page {
	scored := r.Score(queryWords, candidates)
	out := make(index.Page, 0, len(scored))
	for _, s := range scored {
		if !indexing && s.Score <= r.Threshold {
			continue
		}
		out = append(out, s.Posting)
		if !indexing && r.MaxResults > 0 && len(out) >= r.MaxResults {
			break
		}
	}
	return out
}

// Score returns every candidate with its score, best first.
func (r *HeuristicRanker) Score(queryWords []string, candidates index.Page) []Scored {
	query := make([]string, 0, len(queryWords))
	for _, w := range queryWords {
		if w = tokenizer.Stem(tokenizer.Normalize(w)); w != "" {
			query = append(query, w)
		}
	}

	scored := make([]Scored, len(candidates))
	for i, p := range candidates {
		scored[i] = Scored{Posting: p, Score: score(query, p)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func score(query []string, p index.Posting) float64 {
	if len(query) == 0 {
		return p.Score
	}
	total := titleWeight*matchFraction(query, tokenizer.Terms(p.Title)) +
		extractWeight*matchFraction(query, tokenizer.Terms(p.Extract)) +
		urlWeight*matchFraction(query, tokenizer.Terms(p.URL))
	if domain, err := urls.GetDomain(p.URL); err == nil {
		total += domainWeight * matchFraction(query, domainWords(domain))
	}
	total += p.Score
	return math.Round(total*10000) / 10000
}

func matchFraction(query, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	present := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		present[t] = struct{}{}
	}
	matched := 0
	for _, q := range query {
		if _, ok := present[q]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}

func domainWords(domain string) []string {
	parts := strings.FieldsFunc(strings.ToLower(domain), func(r rune) bool {
		return r == '.' || r == '-'
	})
	for i, part := range parts {
		parts[i] = tokenizer.Stem(part)
	}
	return parts
}
