package redisx

import "time"

const (
	// Cache of a serialized order: order:{order_id} -> order JSON.
	// Written after every mutation, read by GET /orders/{id}.
	KeyOrder = "order:%s"

	// Dedup of processed notification events: dedup:{service}:{event_id}.
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
)
