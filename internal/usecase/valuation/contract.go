package valuation

import (
	"context"

	"github.com/magnus-flipper/magnus/internal/domain/budget"
	"github.com/magnus-flipper/magnus/internal/domain/valuation"
)

// Appraiser produces an estimate for an item.
type Appraiser interface {
	Appraise(ctx context.Context, item valuation.Item) (valuation.Estimate, error)
	MaxTokens() int
}

// Admitter charges a budget before work starts.
type Admitter interface {
	Admit(ctx context.Context, kind budget.Kind, orgID string, amount int64) (budget.Decision, error)
}
