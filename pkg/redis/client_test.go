package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pizzalemon/pos-backend/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := FromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	client, mr := newTestClient(t)

	allowed, count, err := client.FixedWindowAllow(ctx, "sales:emp-1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, mr.TTL("pos:rate_limit:sales:emp-1"))

	allowed, count, err = client.FixedWindowAllow(ctx, "sales:emp-1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(2), count)

	allowed, _, err = client.FixedWindowAllow(ctx, "sales:emp-1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(time.Minute + time.Second)
	allowed, count, err = client.FixedWindowAllow(ctx, "sales:emp-1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "window should reset after expiry")
	assert.Equal(t, int64(1), count)
}

func TestFixedWindowAllowRejectsZeroWindow(t *testing.T) {
	client, _ := newTestClient(t)
	_, _, err := client.FixedWindowAllow(context.Background(), "sales:emp-1", 2, 0)
	assert.Error(t, err)
}

func TestSetNXKeepsFirstValue(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient(t)

	key := client.IdempotencyKey("evt:published", "abc")
	set, err := client.SetNX(ctx, key, "1", time.Hour)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = client.SetNX(ctx, key, "2", time.Hour)
	require.NoError(t, err)
	assert.False(t, set)

	got, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	_, err = client.Get(ctx, client.IdempotencyKey("evt:published", "missing"))
	assert.True(t, IsNil(err))
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "pos:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "pos:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "pos:idempotency:sales:emp-1:key-1", client.IdempotencyKey(" sales:emp-1 ", "key-1"))
	assert.Equal(t, "pos:rate_limit", client.RateLimitKey(""))
}

func TestNilClientReturnsErrors(t *testing.T) {
	client := &Client{}
	ctx := context.Background()
	assert.Error(t, client.Ping(ctx))
	_, err := client.Get(ctx, "k")
	assert.Error(t, err)
	_, _, err = client.FixedWindowAllow(ctx, "sales", 1, time.Minute)
	assert.Error(t, err)
	assert.NoError(t, client.Close())
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := New(context.Background(), config.RedisConfig{URL: "redis://" + addr + "/0"}, nil)
	require.NoError(t, err)
	defer client.Close()
	require.NoError(t, client.Ping(context.Background()))

	mr.Close()
	_, err = New(context.Background(), config.RedisConfig{Address: addr, DialTimeout: 200 * time.Millisecond}, nil)
	assert.Error(t, err)
}

func TestOptionsFromConfigRequiresAddress(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)
}
