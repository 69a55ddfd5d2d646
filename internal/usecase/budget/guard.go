package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/domain"
	"github.com/magnus-flipper/magnus/internal/domain/budget"
	"github.com/magnus-flipper/magnus/internal/metrics"
)

// Action defines behavior when a budget is exceeded.
type Action string

const (
	// ActionReject blocks the request.
	ActionReject Action = "reject"
	// ActionWarn logs a warning but allows the request.
	ActionWarn Action = "warn"
)

// GuardConfig holds the caller-side policy.
type GuardConfig struct {
	Action Action
	// FailOpen admits requests when the counter store is unreachable.
	FailOpen bool
}

// ExceededError is returned by Guard.Admit when a rejecting guard sees
// usage over the cap. It unwraps to domain.ErrBudgetExceeded.
type ExceededError struct {
	OrgID    string
	Decision budget.Decision
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s budget exceeded for %s: used=%d, cap=%d",
		e.Decision.Kind(), e.OrgID, e.Decision.Used(), e.Decision.Cap())
}

func (e *ExceededError) Unwrap() error { return domain.ErrBudgetExceeded }

// Guard turns limiter decisions into admit/reject outcomes.
type Guard struct {
	taker  Taker
	limits LimitsSource
	cfg    GuardConfig
	logger *zap.Logger
}

// NewGuard creates a guard. limits is only consulted to describe degraded
// (fail-open) decisions.
func NewGuard(taker Taker, limits LimitsSource, cfg GuardConfig, logger *zap.Logger) *Guard {
	if cfg.Action == "" {
		cfg.Action = ActionReject
	}
	return &Guard{taker: taker, limits: limits, cfg: cfg, logger: logger}
}

// Admit takes amount tokens and applies the guard policy.
func (g *Guard) Admit(ctx context.Context, kind budget.Kind, orgID string, amount int64) (budget.Decision, error) {
	d, err := g.taker.TakeTokens(ctx, kind, orgID, amount)
	if err != nil {
		if g.cfg.FailOpen && errors.Is(err, domain.ErrStoreUnavailable) {
			g.logger.Warn("Budget store unavailable, admitting request",
				zap.String("kind", string(kind)),
				zap.String("org_id", orgID),
				zap.Error(err),
			)
			l, lerr := g.limits.Limits(kind)
			if lerr != nil {
				l = budget.DefaultLimits(kind)
			}
			return budget.DegradedDecision(kind, l, budget.Bucket(time.Now())), nil
		}
		return budget.Decision{}, err
	}

	if d.Allowed() {
		return d, nil
	}

	metrics.BudgetThrottlesTotal.WithLabelValues(string(kind), orgID).Inc()

	if g.cfg.Action == ActionWarn {
		g.logger.Warn("Budget exceeded",
			zap.String("kind", string(kind)),
			zap.String("org_id", orgID),
			zap.Int64("used", d.Used()),
			zap.Int64("cap", d.Cap()),
		)
		return d, nil
	}

	return d, &ExceededError{OrgID: orgID, Decision: d}
}

// WithBudget runs fn only if the guard admits amount tokens of kind for orgID.
func WithBudget[T any](
	ctx context.Context, g *Guard, kind budget.Kind, orgID string, amount int64,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	if _, err := g.Admit(ctx, kind, orgID, amount); err != nil {
		var zero T
		return zero, err
	}
	return fn(ctx)
}
