package magnus

import (
	"github.com/magnus-flipper/magnus/internal/domain"
	budgetuc "github.com/magnus-flipper/magnus/internal/usecase/budget"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrStoreUnavailable = domain.ErrStoreUnavailable
	ErrBudgetExceeded   = domain.ErrBudgetExceeded
	ErrUnknownKind      = domain.ErrUnknownKind
	ErrInvalidAmount    = domain.ErrInvalidAmount
	ErrMissingOrg       = domain.ErrMissingOrg
	ErrInvalidConfig    = domain.ErrInvalidConfig
)

// ExceededError carries the usage that caused Admit to reject.
// Use errors.As() to inspect it.
type ExceededError = budgetuc.ExceededError
