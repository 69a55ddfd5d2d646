package health

import "context"

// StorePinger checks counter store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Checker is an optional dependency probe (LLM provider, webhook sink).
type Checker interface {
	HealthCheck(ctx context.Context) error
}
