package indexer

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/logger"
)

// PagePostings holds the postings produced for each page in one run.
type PagePostings struct {
	postings map[uint32]index.Page
	pages    *roaring.Bitmap
	total    int
}

func newPagePostings() *PagePostings {
	return &PagePostings{
		postings: make(map[uint32]index.Page),
		pages:    roaring.New(),
	}
}

func (pp *PagePostings) add(page int, p index.Posting) {
	key := uint32(page)
	pp.postings[key] = append(pp.postings[key], p)
	pp.pages.Add(key)
	pp.total++
}

// Pages returns the touched page numbers as a bitmap.
func (pp *PagePostings) Pages() *roaring.Bitmap { return pp.pages }

// Postings returns the postings produced for page, in production order.
func (pp *PagePostings) Postings(page int) index.Page { return pp.postings[uint32(page)] }

// Len reports how many pages were touched.
func (pp *PagePostings) Len() int { return int(pp.pages.GetCardinality()) }

// Total reports how many postings were produced.
func (pp *PagePostings) Total() int { return pp.total }

// Preprocess tokenizes docs and files one posting per term on the page the
// term maps to. Documents and terms keep their order within each page.
func (e *Engine) Preprocess(ctx context.Context, docs []index.Document) (*PagePostings, error) {
	log := logger.FromContext(ctx).With("component", "indexer")
	pp := newPagePostings()
	for i, doc := range docs {
		if e.progressEvery > 0 && i%e.progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			log.Info("preprocessing documents", "done", i, "total", len(docs))
		}
		tokenized := e.tokenizer.Tokenize(doc.URL, doc.Title, doc.Extract, doc.Score)
		for _, term := range tokenized.Tokens {
			pp.add(e.store.Locate(term), index.NewPosting(doc, term))
		}
	}
	log.Info("preprocessed documents", "documents", len(docs), "pages", pp.Len(), "postings", pp.Total())
	return pp, nil
}
