package indexer

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
)

// Tokenizer produces the terms a document is filed under.
type Tokenizer interface {
	Tokenize(url, title, extract string, score float64) index.TokenizedDocument
}

// Locator maps a term to the page it is stored on.
type Locator interface {
	Locate(term string) int
}

// AddTermInfo files p under the first of its document's terms that lives on
// page. It returns ErrTermNotOnPage when none does.
func AddTermInfo(p index.Posting, tok Tokenizer, loc Locator, page int) (index.Posting, error) {
	doc := tok.Tokenize(p.URL, p.Title, p.Extract, p.Score)
	for _, term := range doc.Tokens {
		if loc.Locate(term) == page {
			p.Term = term
			return p, nil
		}
	}
	return p, fmt.Errorf("%w: %s on page %d", apperrors.ErrTermNotOnPage, p.URL, page)
}

// AddTermInfos gives every posting of page a term. Postings that already
// have one pass through; postings that cannot be tied to the page are
// dropped. It returns the kept postings and the number dropped.
func AddTermInfos(postings index.Page, tok Tokenizer, loc Locator, page int) (index.Page, int) {
	out := make(index.Page, 0, len(postings))
	dropped := 0
	for _, p := range postings {
		if p.HasTerm() {
			out = append(out, p)
			continue
		}
		fixed, err := AddTermInfo(p, tok, loc, page)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, fixed)
	}
	return out, dropped
}

// onPage returns the organic postings of existing that may stay on page:
// those without a term are repaired and those whose term belongs to another
// page are dropped. Curated postings are returned untouched.
func onPage(existing index.Page, tok Tokenizer, loc Locator, page int) (index.Page, int) {
	out := make(index.Page, 0, len(existing))
	dropped := 0
	for _, p := range existing {
		switch {
		case p.Curated():
			out = append(out, p)
		case !p.HasTerm():
			fixed, err := AddTermInfo(p, tok, loc, page)
			if err != nil {
				dropped++
				continue
			}
			out = append(out, fixed)
		case loc.Locate(p.Term) != page:
			dropped++
		default:
			out = append(out, p)
		}
	}
	return out, dropped
}
