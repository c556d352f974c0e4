package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
)

// tableLocator places listed terms explicitly and everything else on page 0.
type tableLocator map[string]int

func (l tableLocator) Locate(term string) int { return l[term] }

func TestAddTermInfoPicksFirstTermOnPage(t *testing.T) {
	loc := tableLocator{"alpha": 1, "beta": 2, "gamma": 2}
	p := index.Posting{Document: index.Document{Title: "alpha beta gamma", URL: "u"}}

	got, err := AddTermInfo(p, wordTokenizer{}, loc, 2)
	require.NoError(t, err)
	assert.Equal(t, "beta", got.Term)
}

func TestAddTermInfoNoMatch(t *testing.T) {
	loc := tableLocator{"alpha": 1}
	p := index.Posting{Document: index.Document{Title: "alpha", URL: "u"}}

	_, err := AddTermInfo(p, wordTokenizer{}, loc, 3)
	assert.ErrorIs(t, err, apperrors.ErrTermNotOnPage)
}

func TestAddTermInfosPassesThroughAndDrops(t *testing.T) {
	loc := tableLocator{"alpha": 1, "beta": 2}
	postings := index.Page{
		{Document: index.Document{Title: "kept as is", URL: "a"}, Term: "whatever"},
		{Document: index.Document{Title: "alpha", URL: "b"}},
		{Document: index.Document{Title: "beta", URL: "c"}},
	}

	got, dropped := AddTermInfos(postings, wordTokenizer{}, loc, 1)

	require.Len(t, got, 2)
	assert.Equal(t, "whatever", got[0].Term)
	assert.Equal(t, "alpha", got[1].Term)
	assert.Equal(t, 1, dropped)
}

func TestDocumentsFromBatchesOrder(t *testing.T) {
	batches := []batch.HashedBatch{
		{Items: []batch.Item{
			{URL: "1", Content: &batch.ItemContent{Title: "one", Extract: "e1"}},
			{URL: "2"},
		}},
		{Items: []batch.Item{
			{URL: "3", Content: &batch.ItemContent{Title: "three", LinksOnly: true}},
			{URL: "4", Content: &batch.ItemContent{Title: "four"}},
		}},
	}

	docs := DocumentsFromBatches(batches)

	assert.Equal(t, []index.Document{
		{Title: "one", URL: "1", Extract: "e1"},
		{Title: "four", URL: "4"},
	}, docs)
}
