package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pizzalemon/pos-backend/pkg/redis"
)

// Manager remembers which outbox events a publisher already delivered so a
// crash between broker ack and the database update does not send twice.
// Keys follow `pos:idempotency:evt:published:<publisher>:<event_id>`.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds a guard whose marks expire after ttl.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// AlreadyPublished reports whether MarkPublished ran for the event.
func (m *Manager) AlreadyPublished(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error) {
	key, err := m.publishedKey(publisher, eventID)
	if err != nil {
		return false, err
	}
	if _, err := m.store.Get(ctx, key); err != nil {
		if redis.IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkPublished records a successful delivery. It returns false when the event
// was already marked.
func (m *Manager) MarkPublished(ctx context.Context, publisher string, eventID uuid.UUID) (bool, error) {
	key, err := m.publishedKey(publisher, eventID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, "1", m.ttl)
}

func (m *Manager) publishedKey(publisher string, eventID uuid.UUID) (string, error) {
	if publisher == "" {
		return "", errors.New("publisher name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	scope := fmt.Sprintf("evt:published:%s", publisher)
	return m.store.IdempotencyKey(scope, eventID.String()), nil
}
