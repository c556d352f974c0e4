// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Crawl batches arrive through the consumer and indexing
// notifications leave through the producer, both as JSON.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/resilience"
)

// MessageHandler processes one message. Returning nil acknowledges it;
// handlers acknowledge poison messages themselves and return errors only
// for failures worth retrying.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Reader is the part of *kafka.Reader the consumer drives.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds messages from one topic to a MessageHandler, committing
// each offset only after the handler accepted it.
type Consumer struct {
	reader  Reader
	handler MessageHandler
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

// NewConsumer joins cfg.ConsumerGroup on topic. A new group starts from the
// oldest retained message so no crawl batch is missed.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return NewConsumerFromReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	}), topic, handler)
}

// NewConsumerFromReader wraps an existing reader.
func NewConsumerFromReader(r Reader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  r,
		handler: handler,
		retry:   resilience.RetryConfig{MaxAttempts: 5},
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Run consumes until ctx is done and then closes the reader. A message the
// handler keeps failing on stops the consumer with an error, leaving its
// offset uncommitted so the group redelivers it after a restart.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil:
			c.logger.Info("consumer stopping", "reason", ctx.Err())
			return nil
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			c.logger.Error("fetch failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
		log.Debug("message received", "key", string(msg.Key), "value_size", len(msg.Value))
		err = resilience.Retry(ctx, "handle-message", c.retry, func(ctx context.Context) error {
			return c.handler(ctx, msg.Key, msg.Value)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("handling message at partition %d offset %d: %w", msg.Partition, msg.Offset, err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error("commit failed", "error", err)
		}
	}
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := gojson.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
