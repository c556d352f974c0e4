package indexer

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
)

// Ranker orders the candidates for one term. indexing selects the ranking
// mode used while building pages, which must not filter candidates.
type Ranker interface {
	Order(queryWords []string, candidates index.Page, indexing bool) index.Page
}

// termLists keeps one ordered posting list per term, remembering the order
// terms were first added.
type termLists struct {
	order []string
	lists map[string]index.Page
}

func newTermLists() *termLists {
	return &termLists{lists: make(map[string]index.Page)}
}

func (t *termLists) set(term string, postings index.Page) {
	if _, ok := t.lists[term]; !ok {
		t.order = append(t.order, term)
	}
	t.lists[term] = postings
}

func (t *termLists) add(term string, p index.Posting) {
	if _, ok := t.lists[term]; !ok {
		t.order = append(t.order, term)
	}
	t.lists[term] = append(t.lists[term], p)
}

func (t *termLists) has(term string) bool {
	_, ok := t.lists[term]
	return ok
}

// interleave takes the first posting of every term, then the second of
// every term and so on. Terms keep the order they were added in.
func (t *termLists) interleave() index.Page {
	var out index.Page
	for pos := 0; ; pos++ {
		emitted := false
		for _, term := range t.order {
			list := t.lists[term]
			if pos < len(list) {
				out = append(out, list[pos])
				emitted = true
			}
		}
		if !emitted {
			return out
		}
	}
}

// SortPostings orders the content of a page before deduplication. Curated
// postings from existing come first, unchanged. Every term with new postings
// is re-ranked together with the existing organic postings of that term;
// terms without new postings keep their existing order. The per-term lists
// are then interleaved round robin, new terms first in the order they appear
// in newPostings, followed by untouched terms in the order they appear in
// existing. New postings without a term are ignored.
func SortPostings(newPostings, existing index.Page, ranker Ranker) index.Page {
	curated, organic := existing.Split()

	byTerm := newTermLists()
	for _, p := range newPostings {
		if p.HasTerm() {
			byTerm.add(p.Term, p)
		}
	}

	ranked := newTermLists()
	for _, term := range byTerm.order {
		candidates := append(index.Page{}, byTerm.lists[term]...)
		for _, p := range organic {
			if p.Term == term {
				candidates = append(candidates, p)
			}
		}
		ranked.set(term, ranker.Order(strings.Fields(term), candidates, true))
	}

	for _, p := range organic {
		if !byTerm.has(p.Term) {
			ranked.add(p.Term, p)
		}
	}

	sorted := make(index.Page, 0, len(curated)+len(organic)+len(newPostings))
	sorted = append(sorted, curated...)
	return append(sorted, ranked.interleave()...)
}

// Dedupe keeps the first organic posting for each title and each URL.
// Curated postings are always kept, but their titles and URLs still shadow
// later organic copies. It returns the kept postings and how many were
// dropped.
func Dedupe(sorted index.Page) (index.Page, int) {
	seenTitles := make(map[string]struct{}, len(sorted))
	seenURLs := make(map[string]struct{}, len(sorted))
	kept := make(index.Page, 0, len(sorted))
	for _, p := range sorted {
		_, titleSeen := seenTitles[p.Title]
		_, urlSeen := seenURLs[p.URL]
		if !p.Curated() && (titleSeen || urlSeen) {
			continue
		}
		kept = append(kept, p)
		seenTitles[p.Title] = struct{}{}
		seenURLs[p.URL] = struct{}{}
	}
	return kept, len(sorted) - len(kept)
}

// MergePostings computes the new content of a page from its existing
// content and the postings produced for it in this run.
func MergePostings(newPostings, existing index.Page, ranker Ranker) (index.Page, int) {
	return Dedupe(SortPostings(newPostings, existing, ranker))
}
