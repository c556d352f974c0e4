package kafka

import (
	"context"
	"errors"
	"io"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/resilience"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func fastRetry(c *Consumer) {
	c.retry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 1, MaxDelay: 1}
}

func TestConsumerCommitsHandledMessages(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 1, Value: []byte("a")}, {Offset: 2, Value: []byte("b")}}}
	var seen []string
	c := NewConsumerFromReader(r, "batches", func(_ context.Context, _ []byte, v []byte) error {
		seen = append(seen, string(v))
		return nil
	})

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{"a", "b"}, seen)
	assert.Equal(t, []int64{1, 2}, r.committed)
	assert.True(t, r.closed)
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 7}}}
	calls := 0
	c := NewConsumerFromReader(r, "batches", func(context.Context, []byte, []byte) error {
		calls++
		if calls < 2 {
			return errors.New("store unavailable")
		}
		return nil
	})
	fastRetry(c)

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int64{7}, r.committed)
}

func TestConsumerStopsOnPersistentFailure(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{{Offset: 3}, {Offset: 4}}}
	c := NewConsumerFromReader(r, "batches", func(context.Context, []byte, []byte) error {
		return errors.New("store unavailable")
	})
	fastRetry(c)

	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 3")
	assert.Empty(t, r.committed)
	assert.Len(t, r.msgs, 1, "later messages are left for redelivery")
}

type fakeWriter struct{ msgs []kafka.Message }

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducerPublishesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerFromWriter(w, "index-complete")

	require.NoError(t, p.Publish(context.Background(), "run-1", map[string]int{"pages": 3}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "run-1", string(w.msgs[0].Key))

	var got map[string]int
	require.NoError(t, gojson.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, 3, got["pages"])
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	v, err := DecodeJSON[payload]([]byte(`{"name":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "x", v.Name)

	_, err = DecodeJSON[payload]([]byte(`{`))
	assert.Error(t, err)
}
