package cache

import (
	"context"
	"time"
)

// Stats reports backing-store usage, as returned by Store.Stats.
type Stats struct {
	MemoryInfo string `json:"memory_info"`
	KeyCount   int64  `json:"key_count"`
}

// Store is the connected/disconnected key-value adapter in front of the
// backing cache. It is a never-throw boundary: every operation reports
// failure through its return value and logs internally. While the store is
// disconnected all operations are silent no-ops (false / miss / nil), never
// errors — a cache outage degrades requests to direct producer calls, it
// must not fail them.
type Store interface {
	// Connect establishes the connection. A failed connect leaves the
	// store disconnected; whether that is fatal is the caller's policy.
	Connect(ctx context.Context) error
	// Disconnect closes the connection if open. Idempotent.
	Disconnect(ctx context.Context) error
	// Connected reports whether the store is usable right now.
	Connected() bool

	// Set serializes value to JSON and stores it under key with the
	// given TTL. Returns false on any failure or when disconnected.
	Set(ctx context.Context, key Key, value any, ttl time.Duration) bool
	// Get deserializes the entry for key into dest. Returns false on
	// miss, disconnect or deserialization failure.
	Get(ctx context.Context, key Key, dest any) bool
	// DeleteByPattern removes every key matching a glob-style pattern.
	// Returns true even when zero keys matched; false only on transport
	// failure or disconnect.
	DeleteByPattern(ctx context.Context, pattern string) bool
	// FlushAll removes every key in the active database.
	FlushAll(ctx context.Context) bool
	// Stats returns store usage, or nil when unavailable.
	Stats(ctx context.Context) *Stats
}
