package metrics

import "github.com/prometheus/client_golang/prometheus"

// Budget limiter Prometheus metrics.
var (
	BudgetTakesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magnus",
			Name:      "budget_takes_total",
			Help:      "Budget take calls by outcome",
		},
		[]string{"kind", "result"}, // "allowed" / "throttled" / "error"
	)

	BudgetThrottlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magnus",
			Name:      "budget_throttles_total",
			Help:      "Number of requests throttled by the budget guard",
		},
		[]string{"kind", "org_id"},
	)

	BudgetTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magnus",
			Name:      "budget_tokens_total",
			Help:      "Units added to budget counters",
		},
		[]string{"kind"},
	)

	BudgetStoreDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "magnus",
			Name:      "budget_store_duration_seconds",
			Help:      "Counter store round trip duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
	)
)

var budgetMetricsRegistered bool

// RegisterBudgetMetrics registers Prometheus budget metrics. Must be called once from main.
func RegisterBudgetMetrics() {
	if budgetMetricsRegistered {
		return
	}
	prometheus.MustRegister(BudgetTakesTotal)
	prometheus.MustRegister(BudgetThrottlesTotal)
	prometheus.MustRegister(BudgetTokensTotal)
	prometheus.MustRegister(BudgetStoreDuration)
	budgetMetricsRegistered = true
}
