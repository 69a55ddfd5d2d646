package budget

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/magnus-flipper/magnus/internal/domain"
	"github.com/magnus-flipper/magnus/internal/domain/budget"
)

// Environment variables read by EnvLimits.
const (
	EnvAlertsPerMinute = "BUDGET_ALERTS_RATE_PER_MIN"
	EnvLLMPerMinute    = "BUDGET_LLM_TOKENS_PER_MIN"
	EnvBurstMultiplier = "BUDGET_BURST_MULTIPLIER"
)

// StaticLimits serves limits held in memory. Replace swaps them atomically
// so a host can reload configuration on its own cadence.
type StaticLimits struct {
	mu        sync.RWMutex
	perMinute map[budget.Kind]int64
	burst     int64
}

// NewStaticLimits creates a source from per-kind limits and a uniform burst
// multiplier. Kinds absent from perMinute fall back to built-in defaults.
func NewStaticLimits(perMinute map[budget.Kind]int64, burst int64) *StaticLimits {
	s := &StaticLimits{}
	s.Replace(perMinute, burst)
	return s
}

// Replace installs a new set of limits.
func (s *StaticLimits) Replace(perMinute map[budget.Kind]int64, burst int64) {
	m := make(map[budget.Kind]int64, len(perMinute))
	for k, v := range perMinute {
		m[k] = v
	}
	s.mu.Lock()
	s.perMinute = m
	s.burst = burst
	s.mu.Unlock()
}

// Limits implements LimitsSource.
func (s *StaticLimits) Limits(kind budget.Kind) (budget.Limits, error) {
	if !kind.Valid() {
		return budget.Limits{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := budget.DefaultLimits(kind)
	if v, ok := s.perMinute[kind]; ok {
		l.PerMinute = v
	}
	if s.burst > 0 {
		l.BurstMultiplier = s.burst
	}
	return l, nil
}

// EnvLimits reads limits from environment variables on every call.
// Unset variables use the built-in defaults; malformed ones are a
// configuration error surfaced to the caller.
type EnvLimits struct {
	lookup func(string) (string, bool)
}

// NewEnvLimits creates a source backed by os.LookupEnv.
func NewEnvLimits() *EnvLimits {
	return &EnvLimits{lookup: os.LookupEnv}
}

// Limits implements LimitsSource.
func (e *EnvLimits) Limits(kind budget.Kind) (budget.Limits, error) {
	var name string
	switch kind {
	case budget.KindAlerts:
		name = EnvAlertsPerMinute
	case budget.KindLLM:
		name = EnvLLMPerMinute
	default:
		return budget.Limits{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, kind)
	}

	l := budget.DefaultLimits(kind)
	per, err := e.intVar(name, l.PerMinute)
	if err != nil {
		return budget.Limits{}, err
	}
	burst, err := e.intVar(EnvBurstMultiplier, l.BurstMultiplier)
	if err != nil {
		return budget.Limits{}, err
	}
	l.PerMinute = per
	l.BurstMultiplier = burst
	return l, nil
}

func (e *EnvLimits) intVar(name string, def int64) (int64, error) {
	raw, ok := e.lookup(name)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", domain.ErrInvalidConfig, name, raw)
	}
	return v, nil
}
