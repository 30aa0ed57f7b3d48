package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzalemon/pos-backend/pkg/db/models"
	"github.com/pizzalemon/pos-backend/pkg/enums"
)

type fakeDLQReader struct {
	rows       []models.OutboxDLQ
	lastReason *enums.OutboxDLQErrorReason
	lastLimit  int
}

func (f *fakeDLQReader) FindByEventID(_ context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	for i := range f.rows {
		if f.rows[i].EventID == eventID {
			return &f.rows[i], nil
		}
	}
	return nil, nil
}

func (f *fakeDLQReader) List(_ context.Context, reason *enums.OutboxDLQErrorReason, limit int) ([]models.OutboxDLQ, error) {
	f.lastReason = reason
	f.lastLimit = limit
	return f.rows, nil
}

func dlqRow(reason enums.OutboxDLQErrorReason) models.OutboxDLQ {
	msg := "boom"
	return models.OutboxDLQ{
		EventID:      uuid.New(),
		EventType:    enums.EventSaleCompleted,
		AggregateID:  uuid.New(),
		Payload:      json.RawMessage(`{"receipt_number":"R-1"}`),
		ErrorReason:  reason,
		ErrorMessage: &msg,
		AttemptCount: 10,
		FailedAt:     time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestInspectDLQListsByReason(t *testing.T) {
	reader := &fakeDLQReader{rows: []models.OutboxDLQ{
		dlqRow(enums.OutboxDLQReasonMaxAttempts),
		dlqRow(enums.OutboxDLQReasonMaxAttempts),
	}}
	var out bytes.Buffer

	err := inspectDLQ(context.Background(), reader, dlqQuery{Reason: "max_attempts", Limit: 5}, &out)
	require.NoError(t, err)

	require.NotNil(t, reader.lastReason)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, *reader.lastReason)
	assert.Equal(t, 5, reader.lastLimit)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	var first dlqLine
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "boom", first.Message)
	assert.Equal(t, "2026-05-01T08:00:00Z", first.FailedAt)
	assert.JSONEq(t, `{"receipt_number":"R-1"}`, string(first.Payload))
}

func TestInspectDLQByEventID(t *testing.T) {
	target := dlqRow(enums.OutboxDLQReasonUnknownEvent)
	reader := &fakeDLQReader{rows: []models.OutboxDLQ{dlqRow(enums.OutboxDLQReasonMaxAttempts), target}}
	var out bytes.Buffer

	require.NoError(t, inspectDLQ(context.Background(), reader, dlqQuery{EventID: target.EventID.String()}, &out))
	assert.Contains(t, out.String(), target.EventID.String())
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))

	out.Reset()
	require.NoError(t, inspectDLQ(context.Background(), reader, dlqQuery{EventID: uuid.NewString()}, &out))
	assert.Empty(t, out.String())
}

func TestInspectDLQRejectsBadFilters(t *testing.T) {
	reader := &fakeDLQReader{}
	var out bytes.Buffer

	assert.Error(t, inspectDLQ(context.Background(), reader, dlqQuery{EventID: "nope"}, &out))
	assert.Error(t, inspectDLQ(context.Background(), reader, dlqQuery{Reason: "exploded"}, &out))
}
