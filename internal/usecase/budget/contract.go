package budget

import (
	"context"

	"github.com/magnus-flipper/magnus/internal/domain/budget"
)

// CounterStore is the persistence interface for usage counters.
type CounterStore interface {
	// Add increments key by amount (setting the TTL on creation only) and
	// returns the post-increment value in a single round trip.
	Add(ctx context.Context, key string, amount int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// LimitsSource supplies the current limits for a kind. It is consulted on
// every call so configuration changes apply without restarting.
type LimitsSource interface {
	Limits(kind budget.Kind) (budget.Limits, error)
}

// Taker is the limiter contract consumed by guards and transports.
type Taker interface {
	TakeTokens(ctx context.Context, kind budget.Kind, orgID string, amount int64) (budget.Decision, error)
}
