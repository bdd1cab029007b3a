package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		payoutsTotal,
		payoutAmountTotal,
	)
}

var (
	payoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payouts_total",
			Help: "Payouts by status (pending/completed/failed).",
		},
		[]string{"status"},
	)

	payoutAmountTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_amount_total",
			Help: "Total disbursed mentor earnings in minor units, by currency.",
		},
		[]string{"currency"},
	)
)

func IncPayout(status string) {
	payoutsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPayoutAmount(currency string, amountMinor int64) {
	payoutAmountTotal.WithLabelValues(norm(currency)).Add(float64(amountMinor))
}
