package magnus

import (
	"time"

	"github.com/magnus-flipper/magnus/internal/domain/budget"
)

// Kind is a budgeted resource category.
type Kind string

// Kind constants.
const (
	KindAlerts Kind = Kind(budget.KindAlerts)
	KindLLM    Kind = Kind(budget.KindLLM)
)

// Decision is the outcome of a take. The increment has already been applied.
type Decision struct {
	Kind      Kind
	Allowed   bool
	Used      int64
	Cap       int64
	Limit     int64
	Remaining int64
	ResetsAt  time.Time
	// Degraded is set when a fail-open guard admitted without reaching the store.
	Degraded bool
}

func toDecision(d budget.Decision) Decision {
	return Decision{
		Kind:      Kind(d.Kind()),
		Allowed:   d.Allowed(),
		Used:      d.Used(),
		Cap:       d.Cap(),
		Limit:     d.Limit(),
		Remaining: d.Remaining(),
		ResetsAt:  d.ResetsAt(),
		Degraded:  d.Degraded(),
	}
}
