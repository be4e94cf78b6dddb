package redisx

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container tests skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	addr, err := c.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	rdb := New(addr)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisHelpers(t *testing.T) {
	rdb := startRedis(t)
	ctx := context.Background()

	t.Run("idempotency", func(t *testing.T) {
		idem := NewIdempotency(rdb)
		_, ok, err := idem.Lookup(ctx, "k-1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, idem.Remember(ctx, "k-1", "order-1"))
		id, ok, err := idem.Lookup(ctx, "k-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "order-1", id)
	})

	t.Run("status cache", func(t *testing.T) {
		cache := NewStatusCache(rdb)
		_, ok, err := cache.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, cache.Put(ctx, "o-1", 200, []byte(`{"status":"PENDING"}`)))
		b, ok, err := cache.Get(ctx, "o-1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.JSONEq(t, `{"status":"PENDING"}`, string(b))

		// a reader that loaded the order before the change must not win
		require.NoError(t, cache.Put(ctx, "o-1", 100, []byte(`{"status":"SCHEDULED"}`)))
		b, _, err = cache.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"PENDING"}`, string(b))

		require.NoError(t, cache.Put(ctx, "o-1", 300, []byte(`{"status":"ACCEPTED"}`)))
		b, _, err = cache.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"status":"ACCEPTED"}`, string(b))

		ttl, err := rdb.PTTL(ctx, "order_status:o-1").Result()
		require.NoError(t, err)
		assert.Positive(t, ttl)
	})

	t.Run("dedup", func(t *testing.T) {
		d := NewDedup(rdb, "notifier")
		first, err := d.FirstSeen(ctx, "ev-1")
		require.NoError(t, err)
		assert.True(t, first)

		again, err := d.FirstSeen(ctx, "ev-1")
		require.NoError(t, err)
		assert.False(t, again)

		require.NoError(t, d.Forget(ctx, "ev-1"))
		first, err = d.FirstSeen(ctx, "ev-1")
		require.NoError(t, err)
		assert.True(t, first)
	})
}
