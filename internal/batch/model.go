// Package batch models crawl batches and tracks their processing status.
package batch

import (
	"fmt"
)

// ItemContent is the extracted text of a crawled page.
type ItemContent struct {
	Title      string   `json:"title"`
	Extract    string   `json:"extract"`
	Links      []string `json:"links"`
	ExtraLinks []string `json:"extra_links,omitempty"`
	LinksOnly  bool     `json:"links_only,omitempty"`
}

// ItemError describes why a crawl failed.
type ItemError struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}

// Item is the outcome of crawling one URL. Content is nil when the crawl
// failed; Status carries the HTTP status when one was received.
type Item struct {
	URL       string       `json:"url"`
	Status    *int         `json:"status,omitempty"`
	Timestamp int64        `json:"timestamp"`
	Content   *ItemContent `json:"content,omitempty"`
	Error     *ItemError   `json:"error,omitempty"`
}

// Indexable reports whether the item carries text worth indexing.
func (it Item) Indexable() bool {
	return it.Content != nil && !it.Content.LinksOnly
}

// HashedBatch is a crawler submission with the user id replaced by its hash.
type HashedBatch struct {
	ID         string `json:"id,omitempty"`
	UserIDHash string `json:"user_id_hash"`
	Timestamp  int64  `json:"timestamp"`
	Items      []Item `json:"items"`
}

// EnsureID derives a stable id from the submitter and timestamp when the
// batch does not carry one, so redelivered batches map to the same row.
func (b *HashedBatch) EnsureID() string {
	if b.ID == "" {
		b.ID = fmt.Sprintf("%s-%d", b.UserIDHash, b.Timestamp)
	}
	return b.ID
}

// IDs returns the ids of batches in order.
func IDs(batches []HashedBatch) []string {
	ids := make([]string, len(batches))
	for i := range batches {
		ids[i] = batches[i].EnsureID()
	}
	return ids
}
