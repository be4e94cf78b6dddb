package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Idempotency remembers which order a client idempotency key produced.
type Idempotency struct{ rdb redis.Cmdable }

func NewIdempotency(rdb redis.Cmdable) *Idempotency { return &Idempotency{rdb: rdb} }

func (i *Idempotency) Lookup(ctx context.Context, key string) (string, bool, error) {
	id, err := i.rdb.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (i *Idempotency) Remember(ctx context.Context, key, orderID string) error {
	return i.rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), orderID, TTLIdempotency).Err()
}

// StatusCache holds serialized orders for the read path as a hash of
// version and body. A Put older than the cached version is ignored.
type StatusCache struct{ rdb redis.Cmdable }

func NewStatusCache(rdb redis.Cmdable) *StatusCache { return &StatusCache{rdb: rdb} }

// KEYS[1] cache key; ARGV version, body, ttl ms
var putIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'b', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

func (c *StatusCache) Get(ctx context.Context, orderID string) ([]byte, bool, error) {
	b, err := c.rdb.HGet(ctx, fmt.Sprintf(KeyOrderStatus, orderID), "b").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *StatusCache) Put(ctx context.Context, orderID string, version int64, b []byte) error {
	key := fmt.Sprintf(KeyOrderStatus, orderID)
	return putIfNewer.Run(ctx, c.rdb, []string{key}, version, b, TTLStatusCache.Milliseconds()).Err()
}

// Dedup marks event ids as processed for one consumer.
type Dedup struct {
	rdb   redis.Cmdable
	scope string
}

func NewDedup(rdb redis.Cmdable, scope string) *Dedup { return &Dedup{rdb: rdb, scope: scope} }

// FirstSeen marks id and reports whether this call was the first to do so.
func (d *Dedup) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, d.scope, id), "1", TTLDedup).Result()
}

// Forget drops the mark so a redelivery is processed again.
func (d *Dedup) Forget(ctx context.Context, id string) error {
	return d.rdb.Del(ctx, fmt.Sprintf(KeyDedup, d.scope, id)).Err()
}
