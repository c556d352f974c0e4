package indexer

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
)

// urlRanker orders candidates by URL.
type urlRanker struct{}

func (urlRanker) Order(_ []string, candidates index.Page, _ bool) index.Page {
	out := append(index.Page{}, candidates...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// identityRanker returns candidates unchanged.
type identityRanker struct {
	calls [][]string
}

func (r *identityRanker) Order(words []string, candidates index.Page, indexing bool) index.Page {
	if !indexing {
		panic("merge must rank in indexing mode")
	}
	r.calls = append(r.calls, words)
	return candidates
}

func doc(title, url, term string) index.Posting {
	return index.Posting{Document: index.Document{Title: title, URL: url, Extract: "extract of " + title}, Term: term}
}

func curated(title, url, term string) index.Posting {
	p := doc(title, url, term)
	p.State = index.StateOrganicApproved
	return p
}

func urlsOf(page index.Page) []string {
	out := make([]string, len(page))
	for i, p := range page {
		out[i] = p.URL
	}
	return out
}

func TestSortPostingsRanksNewTermsAndKeepsOtherTerms(t *testing.T) {
	existing := index.Page{
		doc("title1", "1", "term1"),
		doc("title2", "4", "term2"),
		doc("title3", "6", "term3"),
		doc("title4", "5", "term3"),
	}
	newPostings := index.Page{
		doc("title5", "2", "term1"),
		doc("title6", "3", "term2"),
	}

	sorted := SortPostings(newPostings, existing, urlRanker{})

	assert.Equal(t, index.Page{
		doc("title1", "1", "term1"),
		doc("title6", "3", "term2"),
		doc("title3", "6", "term3"),
		doc("title5", "2", "term1"),
		doc("title2", "4", "term2"),
		doc("title4", "5", "term3"),
	}, sorted)
}

func TestSortPostingsCuratedFirst(t *testing.T) {
	existing := index.Page{
		doc("title1", "1", "term1"),
		doc("title2", "4", "term2"),
		curated("title3", "6", "term1"),
		curated("title4", "5", "term2"),
	}
	newPostings := index.Page{
		doc("title5", "2", "term1"),
		doc("title6", "3", "term2"),
	}

	sorted := SortPostings(newPostings, existing, urlRanker{})

	assert.Equal(t, index.Page{
		curated("title3", "6", "term1"),
		curated("title4", "5", "term2"),
		doc("title1", "1", "term1"),
		doc("title6", "3", "term2"),
		doc("title5", "2", "term1"),
		doc("title2", "4", "term2"),
	}, sorted)
}

func TestSortPostingsRoundRobin(t *testing.T) {
	newPostings := index.Page{
		doc("A0", "a0", "a"),
		doc("A1", "a1", "a"),
		doc("A2", "a2", "a"),
		doc("B0", "b0", "b"),
	}

	sorted := SortPostings(newPostings, nil, &identityRanker{})

	assert.Equal(t, []string{"a0", "b0", "a1", "a2"}, urlsOf(sorted))
}

func TestMergePostingsCatDogScenario(t *testing.T) {
	existing := index.Page{doc("Cat A", "a.com", "cat")}
	newPostings := index.Page{
		doc("Cat B", "b.com", "cat"),
		doc("Dog C", "c.com", "dog"),
	}
	ranker := &identityRanker{}

	merged, dropped := MergePostings(newPostings, existing, ranker)

	assert.Equal(t, []string{"b.com", "c.com", "a.com"}, urlsOf(merged))
	assert.Zero(t, dropped)
	assert.Equal(t, [][]string{{"cat"}, {"dog"}}, ranker.calls)
}

func TestSortPostingsSplitsMultiWordTerms(t *testing.T) {
	ranker := &identityRanker{}
	SortPostings(index.Page{doc("t", "u", "cat dog")}, nil, ranker)
	assert.Equal(t, [][]string{{"cat", "dog"}}, ranker.calls)
}

func TestSortPostingsSkipsTermlessNewPostings(t *testing.T) {
	sorted := SortPostings(index.Page{doc("t", "u", "")}, nil, &identityRanker{})
	assert.Empty(t, sorted)
}

func TestDedupeKeepsFirstByTitleOrURL(t *testing.T) {
	sorted := index.Page{
		doc("Same", "a.com", "x"),
		doc("Same", "b.com", "y"),
		doc("Other", "a.com", "z"),
		doc("Fresh", "c.com", "x"),
	}

	kept, dropped := Dedupe(sorted)

	assert.Equal(t, []string{"a.com", "c.com"}, urlsOf(kept))
	assert.Equal(t, 2, dropped)
}

func TestDedupeNeverDropsCurated(t *testing.T) {
	sorted := index.Page{
		curated("Pinned", "p.com", "x"),
		curated("Pinned", "p.com", "y"),
		doc("Pinned", "q.com", "x"),
		doc("Organic", "p.com", "x"),
		doc("Kept", "k.com", "x"),
	}

	kept, dropped := Dedupe(sorted)

	assert.Equal(t, index.Page{sorted[0], sorted[1], sorted[4]}, kept)
	assert.Equal(t, 2, dropped)
}

func TestMergePostingsIsDeterministic(t *testing.T) {
	existing := index.Page{
		curated("c", "c.com", "x"),
		doc("e1", "e1.com", "x"),
		doc("e2", "e2.com", "y"),
		doc("e3", "e3.com", "z"),
	}
	newPostings := index.Page{
		doc("n1", "n1.com", "y"),
		doc("n2", "n2.com", "x"),
		doc("e1", "e1.com", "y"),
		doc("n3", "n3.com", "w"),
	}

	first, _ := MergePostings(newPostings, existing, urlRanker{})
	for i := 0; i < 10; i++ {
		again, _ := MergePostings(newPostings, existing, urlRanker{})
		assert.Equal(t, first, again)
	}
}

func TestMergePostingsCuratedSurvive(t *testing.T) {
	pinned := index.Page{curated("Pinned 1", "p1.com", "cat"), curated("Pinned 2", "p2.com", "")}
	existing := append(index.Page{doc("Old", "old.com", "cat")}, pinned...)
	var newPostings index.Page
	for _, url := range []string{"n1.com", "n2.com", "p1.com"} {
		newPostings = append(newPostings, doc("New "+url, url, "cat"))
	}

	merged, _ := MergePostings(newPostings, existing, urlRanker{})

	assert.Equal(t, pinned, merged[:2])
	for _, p := range merged[2:] {
		assert.False(t, p.Curated())
		assert.NotEqual(t, "p1.com", p.URL)
	}
}
