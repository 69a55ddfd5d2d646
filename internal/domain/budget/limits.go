package budget

// Default per-minute limits.
const (
	DefaultAlertsPerMinute int64 = 60
	DefaultLLMPerMinute    int64 = 30000
	DefaultBurstMultiplier int64 = 1
)

// Limits is the effective configuration for one kind.
type Limits struct {
	PerMinute       int64
	BurstMultiplier int64
}

// Cap returns PerMinute * BurstMultiplier. Multipliers below 1 count as 1.
func (l Limits) Cap() int64 {
	burst := l.BurstMultiplier
	if burst < 1 {
		burst = 1
	}
	return l.PerMinute * burst
}

// DefaultLimits returns the built-in limits for a kind.
func DefaultLimits(k Kind) Limits {
	per := DefaultAlertsPerMinute
	if k == KindLLM {
		per = DefaultLLMPerMinute
	}
	return Limits{PerMinute: per, BurstMultiplier: DefaultBurstMultiplier}
}
