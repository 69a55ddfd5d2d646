package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outbound call metrics: notification webhooks and the LLM provider.
var (
	WebhookDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magnus",
			Name:      "webhook_deliveries_total",
			Help:      "Notification webhook deliveries by sink and status",
		},
		[]string{"sink", "status"},
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magnus",
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "magnus",
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "magnus",
			Name:      "llm_tokens_total",
			Help:      "Total LLM tokens reported by the provider",
		},
		[]string{"model", "type"},
	)
)

var outboundMetricsRegistered bool

// RegisterOutboundMetrics registers webhook and LLM metrics. Must be called once from main.
func RegisterOutboundMetrics() {
	if outboundMetricsRegistered {
		return
	}
	prometheus.MustRegister(WebhookDeliveriesTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	outboundMetricsRegistered = true
}
