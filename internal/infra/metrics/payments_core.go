package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		transactionsTotal,
		revenueTotal,
		revenueReversedTotal,
		settlementDelta,
	)
}

var (
	transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Ledger transactions by status (pending/completed/failed/refunded).",
		},
		[]string{"status"},
	)

	revenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_revenue_total",
			Help: "Total monetary value of completed transactions in minor units, by currency.",
		},
		[]string{"currency"},
	)

	revenueReversedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_revenue_reversed_total",
			Help: "Absolute value of completed negative adjustments in minor units, by currency.",
		},
		[]string{"currency"},
	)

	settlementDelta = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hourly_settlement_delta",
			Help:    "Signed difference between actual and estimated hourly charges, in major units.",
			Buckets: []float64{-100, -50, -20, -5, 0, 5, 20, 50, 100},
		},
	)
)

func IncTransaction(status string) {
	transactionsTotal.WithLabelValues(norm(status)).Inc()
}

// AddRevenue records the value of a completed transaction. Settlement
// adjustments can be negative; counters only go up, so reversals land on a
// separate counter as an absolute value.
func AddRevenue(currency string, amountMinor int64) {
	if amountMinor < 0 {
		revenueReversedTotal.WithLabelValues(norm(currency)).Add(float64(-amountMinor))
		return
	}
	revenueTotal.WithLabelValues(norm(currency)).Add(float64(amountMinor))
}

func ObserveSettlementDelta(major float64) {
	settlementDelta.Observe(major)
}
