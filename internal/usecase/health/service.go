package health

import (
	"context"
	"sort"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional dependency is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the counter store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

const storeCheck = "store"

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store   StorePinger
	checks  map[string]Checker
	timeout time.Duration
}

// New creates a Service over the counter store.
func New(store StorePinger) *Service {
	return &Service{store: store, checks: make(map[string]Checker), timeout: 2 * time.Second}
}

// WithCheck adds a named optional probe. A nil checker is ignored.
func (s *Service) WithCheck(name string, c Checker) *Service {
	if c != nil {
		s.checks[name] = c
	}
	return s
}

// WithTimeout bounds each probe.
func (s *Service) WithTimeout(d time.Duration) *Service {
	s.timeout = d
	return s
}

// Names lists the registered probes in order, store first.
func (s *Service) Names() []string {
	names := make([]string, 0, len(s.checks)+1)
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{storeCheck}, names...)
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks)+1)

	checks[storeCheck] = s.probe(ctx, s.store.Ping)
	for name, c := range s.checks {
		checks[name] = s.probe(ctx, c.HealthCheck)
	}

	status := Healthy
	if checks[storeCheck] == CheckError {
		status = Unhealthy
	} else {
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) probe(ctx context.Context, fn func(context.Context) error) CheckResult {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
