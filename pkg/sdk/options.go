package magnus

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	url      string
	addrs    []string
	password string

	keyPrefix string
	ttl       time.Duration

	alertsPerMinute int64
	llmPerMinute    int64
	burst           int64
	envLimits       bool

	warnOnly bool
	failOpen bool

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis connects to a Redis or Valkey instance by address.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisURL connects using a redis:// or rediss:// URL.
func WithRedisURL(url string) Option {
	return optionFunc(func(c *clientConfig) {
		c.url = url
	})
}

// WithKeyPrefix namespaces counter keys. Default: "magnus:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithTTL sets the counter expiry applied on creation. Default: 90s.
func WithTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.ttl = ttl
	})
}

// WithLimits sets per-minute limits and the burst multiplier.
// Zero values keep the defaults (alerts 60, llm 30000, burst 1).
func WithLimits(alertsPerMinute, llmTokensPerMinute, burst int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.alertsPerMinute = alertsPerMinute
		c.llmPerMinute = llmTokensPerMinute
		c.burst = burst
	})
}

// WithEnvLimits reads BUDGET_ALERTS_RATE_PER_MIN, BUDGET_LLM_TOKENS_PER_MIN
// and BUDGET_BURST_MULTIPLIER on every call instead of using WithLimits.
func WithEnvLimits() Option {
	return optionFunc(func(c *clientConfig) {
		c.envLimits = true
	})
}

// WithWarnOnly makes Admit log over-budget requests instead of rejecting them.
func WithWarnOnly() Option {
	return optionFunc(func(c *clientConfig) {
		c.warnOnly = true
	})
}

// WithFailOpen makes Admit proceed when the counter store is unreachable.
func WithFailOpen() Option {
	return optionFunc(func(c *clientConfig) {
		c.failOpen = true
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
