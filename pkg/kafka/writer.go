package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/pizzalemon/pos-backend/pkg/config"
	"github.com/pizzalemon/pos-backend/pkg/logger"
	"github.com/pizzalemon/pos-backend/pkg/outbox"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type dialFunc func(ctx context.Context, network, address string) (*kafka.Conn, error)

// Sink writes outbox messages to Kafka, one topic per message and the
// aggregate id as the partition key.
type Sink struct {
	writer  messageWriter
	brokers []string
	dial    dialFunc
}

// NewSink builds a synchronous writer against the configured brokers.
func NewSink(cfg config.KafkaConfig, logg *logger.Logger) (*Sink, error) {
	brokers := cleanBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
		WriteTimeout:           10 * time.Second,
		BatchTimeout:           10 * time.Millisecond,
	}
	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "brokers", strings.Join(brokers, ",")), "kafka writer initialized")
	}
	return &Sink{writer: writer, brokers: brokers, dial: kafka.DialContext}, nil
}

// Publish writes msg and blocks until the brokers acknowledged it.
func (s *Sink) Publish(ctx context.Context, msg outbox.Message) error {
	if msg.Topic == "" {
		return errors.New("kafka topic is required")
	}
	if err := s.writer.WriteMessages(ctx, toKafkaMessage(msg)); err != nil {
		return fmt.Errorf("write to %s: %w", msg.Topic, err)
	}
	return nil
}

// Ping dials the first reachable broker.
func (s *Sink) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range s.brokers {
		conn, err := s.dial(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		lastErr = errors.New("no kafka brokers configured")
	}
	return fmt.Errorf("kafka ping: %w", lastErr)
}

func (s *Sink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

var _ outbox.Sink = (*Sink)(nil)

func toKafkaMessage(msg outbox.Message) kafka.Message {
	keys := make([]string, 0, len(msg.Attributes))
	for k := range msg.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	headers := make([]kafka.Header, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(msg.Attributes[k])})
	}
	return kafka.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Data,
		Headers: headers,
	}
}

func cleanBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
