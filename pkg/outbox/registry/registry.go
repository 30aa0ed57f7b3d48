// Package registry maps outbox rows to broker topics and decodes their typed
// payloads before the publisher sends them.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/pkg/config"
	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/enums"
	"github.com/pizzalemon/pos-backend/pkg/outbox"
	"github.com/pizzalemon/pos-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	byType map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that can never be delivered as stored.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// decoderFor returns a decoder producing *T.
func decoderFor[T any]() func(json.RawMessage) (any, error) {
	return func(raw json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// NewEventRegistry wires the sale and inventory events to their topics. The
// same names serve as Kafka topics when that sink is selected.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing []error
	if cfg.SalesTopic == "" {
		missing = append(missing, errors.New("sales topic is required"))
	}
	if cfg.InventoryTopic == "" {
		missing = append(missing, errors.New("inventory topic is required"))
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}

	descriptors := []EventDescriptor{
		{enums.EventSaleCompleted, enums.AggregateSale, cfg.SalesTopic, decoderFor[payloads.SaleCompletedEvent]()},
		{enums.EventSaleVoided, enums.AggregateSale, cfg.SalesTopic, decoderFor[payloads.SaleVoidedEvent]()},
		{enums.EventInventoryLowStock, enums.AggregateInventoryRecord, cfg.InventoryTopic, decoderFor[payloads.InventoryLowStockEvent]()},
	}
	reg := &EventRegistry{byType: make(map[enums.OutboxEventType]EventDescriptor, len(descriptors))}
	for _, d := range descriptors {
		reg.byType[d.EventType] = d
	}
	return reg, nil
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is a NonRetryableError since the row will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.byType[event.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, permanent("%s belongs to %s aggregates, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("%s row has no aggregate_id", event.EventType)
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || string(data) == "null" {
		return nil, permanent("%s envelope carries no data", event.EventType)
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, permanent("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

// Message keys the broker message by aggregate id so one sale's events keep
// their order within a partition.
func (r *ResolvedEvent) Message(event models.OutboxEvent) outbox.Message {
	aggregateID := event.AggregateID.String()
	return outbox.Message{
		Topic: r.Descriptor.Topic,
		Key:   aggregateID,
		Data:  event.Payload,
		Attributes: map[string]string{
			"event_id":       r.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   aggregateID,
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}
