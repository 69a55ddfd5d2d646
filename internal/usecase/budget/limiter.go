package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/domain"
	"github.com/magnus-flipper/magnus/internal/domain/budget"
	"github.com/magnus-flipper/magnus/internal/metrics"
)

// Limiter enforces per-organization, per-kind budgets over aligned
// one-minute windows. It reports after the fact: the increment always
// lands and the caller decides what to do with Allowed()==false.
type Limiter struct {
	store  CounterStore
	limits LimitsSource
	prefix string
	now    func() time.Time
	tracer trace.Tracer
	logger *zap.Logger
}

var _ Taker = (*Limiter)(nil)

// NewLimiter creates a limiter over the given counter store and limits source.
func NewLimiter(store CounterStore, limits LimitsSource, logger *zap.Logger) *Limiter {
	return &Limiter{
		store:  store,
		limits: limits,
		prefix: domain.KeyPrefix,
		now:    time.Now,
		tracer: otel.Tracer("magnus/budget"),
		logger: logger,
	}
}

// WithKeyPrefix overrides the key namespace.
func (l *Limiter) WithKeyPrefix(prefix string) *Limiter {
	l.prefix = prefix
	return l
}

// WithClock overrides the wall clock used to pick buckets.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// TakeTokens adds amount to the current minute bucket of (kind, orgID) and
// reports whether post-increment usage is within limit * burst.
//
// Store failures wrap domain.ErrStoreUnavailable and are never converted
// into an allow or deny decision here.
func (l *Limiter) TakeTokens(
	ctx context.Context, kind budget.Kind, orgID string, amount int64,
) (budget.Decision, error) {
	if err := validate(kind, orgID, amount); err != nil {
		return budget.Decision{}, err
	}

	limits, err := l.limits.Limits(kind)
	if err != nil {
		return budget.Decision{}, fmt.Errorf("limits for %s: %w", kind, err)
	}

	bucket := budget.Bucket(l.now())
	key := budget.Key(l.prefix, kind, orgID, bucket)

	ctx, span := l.tracer.Start(ctx, "budget.take_tokens", trace.WithAttributes(
		attribute.String("budget.kind", string(kind)),
		attribute.String("budget.org_id", orgID),
		attribute.Int64("budget.amount", amount),
		attribute.Int64("budget.bucket", bucket),
	))
	defer span.End()

	start := time.Now()
	used, err := l.store.Add(ctx, key, amount)
	metrics.BudgetStoreDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BudgetTakesTotal.WithLabelValues(string(kind), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.Error("Budget store round trip failed",
			zap.String("kind", string(kind)),
			zap.String("org_id", orgID),
			zap.Error(err),
		)
		return budget.Decision{}, fmt.Errorf("take %s tokens: %w", kind, err)
	}

	metrics.BudgetTokensTotal.WithLabelValues(string(kind)).Add(float64(amount))

	d := budget.NewDecision(kind, used, limits, bucket)
	span.SetAttributes(
		attribute.Bool("budget.allowed", d.Allowed()),
		attribute.Int64("budget.used", d.Used()),
		attribute.Int64("budget.cap", d.Cap()),
	)

	if d.Allowed() {
		metrics.BudgetTakesTotal.WithLabelValues(string(kind), "allowed").Inc()
	} else {
		metrics.BudgetTakesTotal.WithLabelValues(string(kind), "throttled").Inc()
		l.logger.Debug("Budget cap crossed",
			zap.String("kind", string(kind)),
			zap.String("org_id", orgID),
			zap.Int64("used", d.Used()),
			zap.Int64("cap", d.Cap()),
		)
	}
	return d, nil
}

// Usage reports the current bucket without consuming anything.
func (l *Limiter) Usage(ctx context.Context, kind budget.Kind, orgID string) (budget.Decision, error) {
	if err := validate(kind, orgID, 1); err != nil {
		return budget.Decision{}, err
	}
	limits, err := l.limits.Limits(kind)
	if err != nil {
		return budget.Decision{}, fmt.Errorf("limits for %s: %w", kind, err)
	}

	bucket := budget.Bucket(l.now())
	used, err := l.store.Get(ctx, budget.Key(l.prefix, kind, orgID, bucket))
	if err != nil {
		return budget.Decision{}, fmt.Errorf("read %s usage: %w", kind, err)
	}
	return budget.NewDecision(kind, used, limits, bucket), nil
}

func validate(kind budget.Kind, orgID string, amount int64) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	if strings.TrimSpace(orgID) == "" {
		return domain.ErrMissingOrg
	}
	if amount <= 0 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidAmount, amount)
	}
	return nil
}
