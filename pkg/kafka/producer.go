package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/config"
)

// Writer is the part of *kafka.Writer the producer drives.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON values to one topic. Messages with the same key
// land on the same partition.
type Producer struct {
	writer Writer
	logger *slog.Logger
}

// NewProducer writes synchronously to topic, waiting for all in-sync
// replicas, so Publish returning nil means the event is durable.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return NewProducerFromWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Zstd,
	}, topic)
}

// NewProducerFromWriter wraps an existing writer.
func NewProducerFromWriter(w Writer, topic string) *Producer {
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish encodes value as JSON and writes it under key.
func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	data, err := gojson.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %T: %w", value, err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data}); err != nil {
		return fmt.Errorf("publishing %s: %w", key, err)
	}
	p.logger.Debug("message published", "key", key, "value_size", len(data))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
