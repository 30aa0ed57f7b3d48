package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/enums"
)

type dlqReader interface {
	FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error)
	List(ctx context.Context, reason *enums.OutboxDLQErrorReason, limit int) ([]models.OutboxDLQ, error)
}

type dlqQuery struct {
	EventID string
	Reason  string
	Limit   int
}

// dlqLine is one dead-lettered event as printed by -dlq.
type dlqLine struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	AggregateID  string          `json:"aggregate_id"`
	Reason       string          `json:"reason"`
	Message      string          `json:"message,omitempty"`
	AttemptCount int             `json:"attempt_count"`
	FailedAt     string          `json:"failed_at"`
	Payload      json.RawMessage `json:"payload"`
}

// inspectDLQ writes matching DLQ rows to out as JSON lines, newest first.
func inspectDLQ(ctx context.Context, reader dlqReader, q dlqQuery, out io.Writer) error {
	rows, err := selectDLQ(ctx, reader, q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, row := range rows {
		line := dlqLine{
			EventID:      row.EventID.String(),
			EventType:    string(row.EventType),
			AggregateID:  row.AggregateID.String(),
			Reason:       string(row.ErrorReason),
			AttemptCount: row.AttemptCount,
			FailedAt:     row.FailedAt.UTC().Format(time.RFC3339),
			Payload:      row.Payload,
		}
		if row.ErrorMessage != nil {
			line.Message = *row.ErrorMessage
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

func selectDLQ(ctx context.Context, reader dlqReader, q dlqQuery) ([]models.OutboxDLQ, error) {
	if id := strings.TrimSpace(q.EventID); id != "" {
		eventID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid event id %q: %w", id, err)
		}
		row, err := reader.FindByEventID(ctx, eventID)
		if err != nil || row == nil {
			return nil, err
		}
		return []models.OutboxDLQ{*row}, nil
	}

	var reason *enums.OutboxDLQErrorReason
	if raw := strings.TrimSpace(q.Reason); raw != "" {
		r := enums.OutboxDLQErrorReason(raw)
		if !r.IsValid() {
			return nil, fmt.Errorf("unknown dlq reason %q", raw)
		}
		reason = &r
	}
	return reader.List(ctx, reason, q.Limit)
}
