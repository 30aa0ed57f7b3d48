package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies the employee whose request produced the event.
type ActorRef struct {
	EmployeeID uuid.UUID  `json:"employeeId"`
	BranchID   *uuid.UUID `json:"branchId,omitempty"`
	Role       string     `json:"role,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// Message is a resolved event ready for a broker.
type Message struct {
	Topic      string
	Key        string
	Data       []byte
	Attributes map[string]string
}
