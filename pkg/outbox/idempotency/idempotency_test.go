package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pizzalemon/pos-backend/pkg/redis"
)

func newManager(t *testing.T, ttl time.Duration) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.FromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	manager, err := NewManager(client, ttl)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return manager, mr
}

func TestMarkPublishedLifecycle(t *testing.T) {
	ctx := context.Background()
	manager, mr := newManager(t, 24*time.Hour)
	eventID := uuid.New()

	seen, err := manager.AlreadyPublished(ctx, "outbox-publisher", eventID)
	if err != nil {
		t.Fatalf("AlreadyPublished: %v", err)
	}
	if seen {
		t.Fatal("expected unseen event")
	}

	first, err := manager.MarkPublished(ctx, "outbox-publisher", eventID)
	if err != nil || !first {
		t.Fatalf("expected first mark to win, got %v %v", first, err)
	}
	second, err := manager.MarkPublished(ctx, "outbox-publisher", eventID)
	if err != nil || second {
		t.Fatalf("expected second mark to lose, got %v %v", second, err)
	}

	key := "pos:idempotency:evt:published:outbox-publisher:" + eventID.String()
	if !mr.Exists(key) {
		t.Fatalf("expected key %s", key)
	}
	if ttl := mr.TTL(key); ttl != 24*time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	seen, err = manager.AlreadyPublished(ctx, "outbox-publisher", eventID)
	if err != nil || !seen {
		t.Fatalf("expected seen event, got %v %v", seen, err)
	}
}

func TestManagerValidatesInputs(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected nil store to fail")
	}

	manager, _ := newManager(t, time.Hour)
	if _, err := manager.MarkPublished(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected missing publisher to fail")
	}
	if _, err := manager.AlreadyPublished(context.Background(), "outbox-publisher", uuid.Nil); err == nil {
		t.Fatal("expected nil event id to fail")
	}
}

func TestAlreadyPublishedSurfacesStoreErrors(t *testing.T) {
	manager, mr := newManager(t, time.Hour)
	mr.SetError("ERR injected failure")

	if _, err := manager.AlreadyPublished(context.Background(), "outbox-publisher", uuid.New()); err == nil {
		t.Fatal("expected redis error")
	}
}
