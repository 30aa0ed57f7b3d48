package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateSale            OutboxAggregateType = "sale"
	AggregateInventoryRecord OutboxAggregateType = "inventory_record"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSale,
	AggregateInventoryRecord,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, value, "aggregate type")
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventSaleCompleted     OutboxEventType = "sale_completed"
	EventSaleVoided        OutboxEventType = "sale_voided"
	EventInventoryLowStock OutboxEventType = "inventory_low_stock"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSaleCompleted,
	EventSaleVoided,
	EventInventoryLowStock,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validOutboxEventTypes, value, "event type")
}
