// Package consumer stores crawl batches arriving on Kafka so the pipeline
// can pick them up in the LOCAL status.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/metrics"
)

// BatchStore is where received batches are kept.
type BatchStore interface {
	Upsert(ctx context.Context, b batch.HashedBatch, status batch.Status) (bool, error)
}

// HandleMessage returns a MessageHandler that stores each crawl batch as
// LOCAL. Malformed messages are logged and acknowledged so they do not
// block the partition; storage errors leave the message uncommitted.
func HandleMessage(store BatchStore, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "batch-consumer")
	count := func(result string) {
		if m != nil {
			m.BatchesIngested.WithLabelValues(result).Inc()
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		b, err := kafka.DecodeJSON[batch.HashedBatch](value)
		if err != nil {
			count("invalid")
			logger.Error("failed to decode crawl batch", "error", err, "key", string(key))
			return nil
		}
		if err := validate(b); err != nil {
			count("invalid")
			logger.Warn("rejecting crawl batch", "error", err, "key", string(key))
			return nil
		}

		b.EnsureID()
		inserted, err := store.Upsert(ctx, b, batch.StatusLocal)
		if err != nil {
			return fmt.Errorf("storing batch %s: %w", b.ID, err)
		}
		if !inserted {
			count("duplicate")
			logger.Debug("batch already stored", "batch_id", b.ID)
			return nil
		}
		count("stored")
		logger.Info("batch stored", "batch_id", b.ID, "items", len(b.Items))
		return nil
	}
}

func validate(b batch.HashedBatch) error {
	if b.UserIDHash == "" {
		return fmt.Errorf("batch has no user hash")
	}
	if len(b.Items) == 0 {
		return fmt.Errorf("batch has no items")
	}
	for i, item := range b.Items {
		if item.URL == "" {
			return fmt.Errorf("item %d has no url", i)
		}
	}
	return nil
}
