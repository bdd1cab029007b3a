package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		riskDecisionsTotal,
		webhookEventsTotal,
	)
}

var (
	riskDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risk_decisions_total",
			Help: "Risk screening outcomes (approved/rejected).",
		},
		[]string{"outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Gateway webhook deliveries by event type or drop reason.",
		},
		[]string{"event"},
	)
)

func IncRiskDecision(outcome string) {
	riskDecisionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncWebhook(event string) {
	webhookEventsTotal.WithLabelValues(norm(event)).Inc()
}
