package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/magnus-flipper/magnus/internal/db"
	"github.com/magnus-flipper/magnus/internal/domain"
)

// store is the consumer interface for budget counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrByExpireNX(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}

// Store keeps fixed-window usage counters in the shared KV store.
type Store struct {
	store store
	ttl   time.Duration
}

// New creates a counter store. ttl is applied once per key on creation
// (recommended: 90s, 1.5x the bucket width).
func New(s store, ttl time.Duration) *Store {
	return &Store{store: s, ttl: ttl}
}

// Add atomically increments the counter and returns the post-increment value.
// The TTL is set only if the key has no expiry yet (NX, not reset on repeat).
// Every store failure maps to ErrStoreUnavailable, error replies such as
// WRONGTYPE or INCRBY overflow included: callers see one store error kind.
func (s *Store) Add(ctx context.Context, key string, amount int64) (int64, error) {
	used, err := s.store.IncrByExpireNX(ctx, key, amount, s.ttl)
	if err != nil {
		return 0, fmt.Errorf("budget INCRBY %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}
	return used, nil
}

// Get returns the current counter value. Returns 0 if the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w: %w", key, domain.ErrStoreUnavailable, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}
