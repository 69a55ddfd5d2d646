package chi

import (
	"context"

	"github.com/magnus-flipper/magnus/internal/domain/budget"
	"github.com/magnus-flipper/magnus/internal/domain/valuation"
	"github.com/magnus-flipper/magnus/internal/domain/win"
	healthuc "github.com/magnus-flipper/magnus/internal/usecase/health"
	notifyuc "github.com/magnus-flipper/magnus/internal/usecase/notify"
	valuationuc "github.com/magnus-flipper/magnus/internal/usecase/valuation"
)

// Budgeter exposes raw limiter results for the budget endpoints.
type Budgeter interface {
	TakeTokens(ctx context.Context, kind budget.Kind, orgID string, amount int64) (budget.Decision, error)
	Usage(ctx context.Context, kind budget.Kind, orgID string) (budget.Decision, error)
}

// Admitter applies the caller policy in front of guarded routes.
type Admitter interface {
	Admit(ctx context.Context, kind budget.Kind, orgID string, amount int64) (budget.Decision, error)
}

// WinNotifier relays win announcements.
type WinNotifier interface {
	NotifyWin(ctx context.Context, w win.Win) (notifyuc.Delivery, error)
}

// Appraiser runs budgeted item valuations.
type Appraiser interface {
	Appraise(ctx context.Context, orgID string, item valuation.Item) (valuationuc.Result, error)
}

// HealthChecker aggregates dependency probes.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
