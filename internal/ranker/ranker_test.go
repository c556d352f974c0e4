package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
)

func posting(title, url, extract string, score float64) index.Posting {
	return index.Posting{Document: index.Document{Title: title, URL: url, Extract: extract, Score: score}}
}

func TestOrderPrefersTitleMatches(t *testing.T) {
	candidates := index.Page{
		posting("Gardening tips", "https://garden.org/tips", "cats dislike water", 0),
		posting("All about cats", "https://pets.org/cats", "", 0),
		posting("Unrelated", "https://other.org", "", 0),
	}

	got := New().Order([]string{"cats"}, candidates, true)

	assert.Len(t, got, 3)
	assert.Equal(t, "https://pets.org/cats", got[0].URL)
	assert.Equal(t, "https://garden.org/tips", got[1].URL)
	assert.Equal(t, "https://other.org", got[2].URL)
}

func TestOrderIsStableOnTies(t *testing.T) {
	candidates := index.Page{
		posting("x", "https://b.com", "", 0),
		posting("y", "https://a.com", "", 0),
		posting("z", "https://c.com", "", 0),
	}

	got := New().Order([]string{"cat"}, candidates, true)

	assert.Equal(t, candidates, got)
}

func TestOrderLiveModeFiltersAndCaps(t *testing.T) {
	candidates := index.Page{
		posting("cat one", "https://a.com", "", 0),
		posting("nothing", "https://b.com", "", 0),
		posting("cat two", "https://c.com", "", 0),
		posting("cat three", "https://d.com", "", 0),
	}
	r := &HeuristicRanker{Threshold: 0, MaxResults: 2}

	got := r.Order([]string{"cat"}, candidates, false)

	assert.Len(t, got, 2)
	assert.Equal(t, "https://a.com", got[0].URL)
	assert.Equal(t, "https://c.com", got[1].URL)

	indexed := r.Order([]string{"cat"}, candidates, true)
	assert.Len(t, indexed, 4)
}

func TestOrderDomainAndPrior(t *testing.T) {
	candidates := index.Page{
		posting("Home", "https://example.com/", "", 0),
		posting("Home", "https://python.org/", "", 0),
		posting("Home", "https://boosted.net/", "", 5),
	}

	got := New().Order([]string{"python"}, candidates, true)

	assert.Equal(t, "https://boosted.net/", got[0].URL)
	assert.Equal(t, "https://python.org/", got[1].URL)
}

func TestOrderEmptyCandidates(t *testing.T) {
	assert.Empty(t, New().Order([]string{"cat"}, nil, true))
	assert.Empty(t, New().Order([]string{"cat"}, index.Page{}, false))
}

func TestOrderIsDeterministic(t *testing.T) {
	candidates := index.Page{
		posting("dog walking", "https://a.com/dog", "dogs", 0.2),
		posting("dog", "https://b.com", "", 0.1),
		posting("cat", "https://c.com/dog", "", 0),
	}
	r := New()
	assert.Equal(t, r.Order([]string{"dog"}, candidates, true), r.Order([]string{"dog"}, candidates, true))
}
