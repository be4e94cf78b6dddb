package orders

import (
	"context"
	"time"
)

// OrderCache holds serialized read copies of orders. Put keeps whichever copy
// has the higher version, so a slow reader cannot overwrite a newer write.
type OrderCache interface {
	Put(ctx context.Context, orderID string, version int64, b []byte) error
}

type NopOrderCache struct{}

func (NopOrderCache) Put(context.Context, string, int64, []byte) error { return nil }

// CacheVersion grows with every status change of the order.
func (o *Order) CacheVersion() int64 { return o.UpdatedAt.UnixMicro() }

// stamp returns the update time for a write following prev. Postgres keeps
// microseconds, and two writes of one order never share a stamp.
func stamp(now, prev time.Time) time.Time {
	at := now.UTC().Truncate(time.Microsecond)
	if !at.After(prev) {
		at = prev.UTC().Truncate(time.Microsecond).Add(time.Microsecond)
	}
	return at
}
