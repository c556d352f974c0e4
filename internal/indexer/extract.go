package indexer

import (
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
)

// DocumentsFromBatches returns one document per indexable item, in batch
// order and then item order.
func DocumentsFromBatches(batches []batch.HashedBatch) []index.Document {
	var docs []index.Document
	for _, b := range batches {
		for _, item := range b.Items {
			if !item.Indexable() {
				continue
			}
			docs = append(docs, index.Document{
				Title:   item.Content.Title,
				URL:     item.URL,
				Extract: item.Content.Extract,
			})
		}
	}
	return docs
}
