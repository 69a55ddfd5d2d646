package valuation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/domain/budget"
	"github.com/magnus-flipper/magnus/internal/domain/valuation"
)

// Result is an estimate plus the budget state after charging for it.
type Result struct {
	Estimate valuation.Estimate
	Decision budget.Decision
	Charged  int64
}

// Service appraises items under the organization's llm budget.
type Service struct {
	appraiser Appraiser
	guard     Admitter
	logger    *zap.Logger
}

// New creates a valuation service.
func New(appraiser Appraiser, guard Admitter, logger *zap.Logger) *Service {
	return &Service{appraiser: appraiser, guard: guard, logger: logger}
}

// Appraise charges the estimated prompt plus completion tokens against the
// llm budget and calls the model only when admitted. The charge is not
// refunded if the model call fails.
func (s *Service) Appraise(ctx context.Context, orgID string, item valuation.Item) (Result, error) {
	if err := item.Validate(); err != nil {
		return Result{}, err
	}

	amount := valuation.EstimateTokens(item, s.appraiser.MaxTokens())
	d, err := s.guard.Admit(ctx, budget.KindLLM, orgID, amount)
	if err != nil {
		return Result{Decision: d, Charged: amount}, err
	}

	est, err := s.appraiser.Appraise(ctx, item)
	if err != nil {
		return Result{Decision: d, Charged: amount}, fmt.Errorf("appraise %q: %w", item.Title, err)
	}

	if est.TokensUsed > 0 && int64(est.TokensUsed) > amount {
		s.logger.Warn("Valuation used more tokens than charged",
			zap.String("org_id", orgID),
			zap.Int64("charged", amount),
			zap.Int("used", est.TokensUsed),
		)
	}

	return Result{Estimate: est, Decision: d, Charged: amount}, nil
}
