package magnus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/db"
	dbRedis "github.com/magnus-flipper/magnus/internal/db/redis"
	"github.com/magnus-flipper/magnus/internal/domain"
	"github.com/magnus-flipper/magnus/internal/domain/budget"
	budgetrepo "github.com/magnus-flipper/magnus/internal/repository/budget"
	budgetuc "github.com/magnus-flipper/magnus/internal/usecase/budget"
	healthuc "github.com/magnus-flipper/magnus/internal/usecase/health"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultTTL              = 90 * time.Second
)

// Internal interfaces, replaced in tests.
type limiterUseCase interface {
	TakeTokens(ctx context.Context, kind budget.Kind, orgID string, amount int64) (budget.Decision, error)
	Usage(ctx context.Context, kind budget.Kind, orgID string) (budget.Decision, error)
}

type guardUseCase interface {
	Admit(ctx context.Context, kind budget.Kind, orgID string, amount int64) (budget.Decision, error)
}

// Client is the magnus budget SDK entry point.
type Client struct {
	store     db.Store
	limiter   limiterUseCase
	guard     guardUseCase
	static    *budgetuc.StaticLimits
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the counter store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.url == "" && len(cfg.addrs) == 0 {
		return nil, errors.New("magnus: store address required (use WithRedis or WithRedisURL)")
	}
	if cfg.ttl != 0 && cfg.ttl < time.Minute {
		return nil, fmt.Errorf("magnus: %w: ttl %s is shorter than a bucket", domain.ErrInvalidConfig, cfg.ttl)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		URL:      cfg.url,
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("magnus: create store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("magnus: store not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	ttl := cfg.ttl
	if ttl == 0 {
		ttl = defaultTTL
	}

	var limits budgetuc.LimitsSource
	var static *budgetuc.StaticLimits
	if cfg.envLimits {
		limits = budgetuc.NewEnvLimits()
	} else {
		static = budgetuc.NewStaticLimits(perMinute(cfg.alertsPerMinute, cfg.llmPerMinute), cfg.burst)
		limits = static
	}

	// The use cases log through zap; SDK callers get slog via the observer.
	nop := zap.NewNop()
	limiter := budgetuc.NewLimiter(budgetrepo.New(store, ttl), limits, nop)
	if cfg.keyPrefix != "" {
		limiter = limiter.WithKeyPrefix(cfg.keyPrefix)
	}

	action := budgetuc.ActionReject
	if cfg.warnOnly {
		action = budgetuc.ActionWarn
	}
	guard := budgetuc.NewGuard(limiter, limits, budgetuc.GuardConfig{
		Action:   action,
		FailOpen: cfg.failOpen,
	}, nop)

	return &Client{
		store:     store,
		limiter:   limiter,
		guard:     guard,
		static:    static,
		healthSvc: healthuc.New(store),
		obs:       obs,
	}
}

func perMinute(alerts, llm int64) map[budget.Kind]int64 {
	m := make(map[budget.Kind]int64, 2)
	if alerts > 0 {
		m[budget.KindAlerts] = alerts
	}
	if llm > 0 {
		m[budget.KindLLM] = llm
	}
	return m
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// TakeTokens adds amount to the organization's usage for the current minute
// and reports whether usage is within the cap. Over budget is not an error.
func (c *Client) TakeTokens(ctx context.Context, kind Kind, orgID string, amount int64) (d Decision, err error) {
	start := time.Now()
	defer func() { c.obs.observe("take_tokens", start, err) }()

	dec, err := c.limiter.TakeTokens(ctx, budget.Kind(kind), orgID, amount)
	if err != nil {
		return Decision{}, err
	}
	return toDecision(dec), nil
}

// Admit takes tokens and applies the configured policy. A rejection returns
// an *ExceededError matching ErrBudgetExceeded.
func (c *Client) Admit(ctx context.Context, kind Kind, orgID string, amount int64) (d Decision, err error) {
	start := time.Now()
	defer func() { c.obs.observe("admit", start, err) }()

	dec, err := c.guard.Admit(ctx, budget.Kind(kind), orgID, amount)
	if err != nil {
		var exceeded *ExceededError
		if errors.As(err, &exceeded) {
			return toDecision(exceeded.Decision), err
		}
		return Decision{}, err
	}
	return toDecision(dec), nil
}

// Usage reads the current minute's usage without incrementing it.
func (c *Client) Usage(ctx context.Context, kind Kind, orgID string) (d Decision, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	dec, err := c.limiter.Usage(ctx, budget.Kind(kind), orgID)
	if err != nil {
		return Decision{}, err
	}
	return toDecision(dec), nil
}

// SetLimits swaps the in-memory limits. It fails for clients built with WithEnvLimits.
func (c *Client) SetLimits(alertsPerMinute, llmTokensPerMinute, burst int64) error {
	if c.static == nil {
		return fmt.Errorf("magnus: %w: limits come from the environment", domain.ErrInvalidConfig)
	}
	c.static.Replace(perMinute(alertsPerMinute, llmTokensPerMinute), burst)
	return nil
}

// Do runs fn only when Admit lets the request through.
func Do[T any](ctx context.Context, c *Client, kind Kind, orgID string, amount int64, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if _, err := c.Admit(ctx, kind, orgID, amount); err != nil {
		return zero, err
	}
	return fn(ctx)
}
