package indexer

import (
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
)

// ChunkIndexed announces that a chunk of batches has been merged into the
// index. Pages holds the touched page numbers as a serialized roaring
// bitmap so readers can drop cached copies of exactly those pages.
type ChunkIndexed struct {
	RunID     string    `json:"run_id"`
	BatchIDs  []string  `json:"batch_ids"`
	Documents int       `json:"documents"`
	PageCount int       `json:"page_count"`
	Pages     []byte    `json:"pages"`
	IndexedAt time.Time `json:"indexed_at"`
}

// NewChunkIndexed builds the event for a committed chunk.
func NewChunkIndexed(runID string, batches []batch.HashedBatch, res Result) (ChunkIndexed, error) {
	ev := ChunkIndexed{
		RunID:     runID,
		BatchIDs:  batch.IDs(batches),
		Documents: res.Documents,
		IndexedAt: time.Now().UTC(),
	}
	if res.Pages != nil {
		res.Pages.RunOptimize()
		data, err := res.Pages.ToBytes()
		if err != nil {
			return ChunkIndexed{}, fmt.Errorf("encoding touched pages: %w", err)
		}
		ev.PageCount = int(res.Pages.GetCardinality())
		ev.Pages = data
	}
	return ev, nil
}

// TouchedPages decodes the page set carried by the event.
func (ev ChunkIndexed) TouchedPages() (*roaring.Bitmap, error) {
	bm := roaring.New()
	if len(ev.Pages) == 0 {
		return bm, nil
	}
	if err := bm.UnmarshalBinary(ev.Pages); err != nil {
		return nil, fmt.Errorf("decoding touched pages: %w", err)
	}
	return bm, nil
}
