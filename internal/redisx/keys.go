package redisx

import "time"

const (
	// idem:order:create:{idempotency_key} -> order id
	KeyIdemOrderCreate = "idem:order:create:%s"

	// order_status:{order_id} -> hash {v: version, b: order JSON}
	KeyOrderStatus = "order_status:%s"

	// dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
