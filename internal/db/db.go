package db

import (
	"context"
	"time"
)

// Store is the counter store facade used by the services.
type Store interface {
	Pinger
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides integer counter operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// IncrByExpireNX increments key by val and sets ttl only when the key has
	// no expiry, as one MULTI/EXEC round trip. Returns the post-increment value.
	IncrByExpireNX(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}
