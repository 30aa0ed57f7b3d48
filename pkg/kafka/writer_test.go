package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzalemon/pos-backend/pkg/config"
	"github.com/pizzalemon/pos-backend/pkg/outbox"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishMapsMessage(t *testing.T) {
	writer := &fakeWriter{}
	sink := &Sink{writer: writer}

	err := sink.Publish(context.Background(), outbox.Message{
		Topic: "pos-sales-events",
		Key:   "sale-1",
		Data:  []byte(`{"version":1}`),
		Attributes: map[string]string{
			"event_type":   "sale_completed",
			"aggregate_id": "sale-1",
		},
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "pos-sales-events", msg.Topic)
	assert.Equal(t, []byte("sale-1"), msg.Key)
	assert.JSONEq(t, `{"version":1}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "aggregate_id", msg.Headers[0].Key)
	assert.Equal(t, "event_type", msg.Headers[1].Key)
}

func TestPublishWrapsWriterError(t *testing.T) {
	sink := &Sink{writer: &fakeWriter{err: errors.New("leader not available")}}
	err := sink.Publish(context.Background(), outbox.Message{Topic: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")

	assert.Error(t, sink.Publish(context.Background(), outbox.Message{}))
}

func TestPingTriesEveryBroker(t *testing.T) {
	var dialed []string
	sink := &Sink{
		brokers: []string{"kafka-1:9092", "kafka-2:9092"},
		dial: func(_ context.Context, _, address string) (*kafka.Conn, error) {
			dialed = append(dialed, address)
			return nil, errors.New("connection refused")
		},
	}
	err := sink.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, dialed)
}

func TestNewSinkRequiresBrokers(t *testing.T) {
	_, err := NewSink(config.KafkaConfig{Brokers: []string{" "}}, nil)
	assert.Error(t, err)

	sink, err := NewSink(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	require.NoError(t, err)
	assert.NoError(t, sink.Close())
}
