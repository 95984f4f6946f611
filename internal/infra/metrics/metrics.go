package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	codesIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_codes_issued_total",
			Help: "Subscription codes issued by sellers.",
		},
	)

	codesRedeemed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_codes_redeemed_total",
			Help: "Subscription codes successfully redeemed.",
		},
	)

	codesExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_codes_expired_total",
			Help: "Issued codes finalized as expired by the sweeper.",
		},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "billing_rate_limited_total",
			Help: "Validation/redemption calls rejected by the rate limiter.",
		},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_webhook_events_total",
			Help: "Webhook events by disposition (completed/failed/replay/unknown/amount_mismatch).",
		},
		[]string{"disposition"},
	)

	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payments_total",
			Help: "Payment ledger writes by status.",
		},
		[]string{"status"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			codesIssued, codesRedeemed, codesExpired,
			rateLimited, webhookEvents, paymentsTotal,
		)
	})
}

func IncCodesIssued()   { codesIssued.Inc() }
func IncCodesRedeemed() { codesRedeemed.Inc() }
func IncCodesExpired(n int) {
	codesExpired.Add(float64(n))
}
func IncRateLimited() { rateLimited.Inc() }
func IncWebhookEvents(disposition string) {
	webhookEvents.WithLabelValues(disposition).Inc()
}
func IncPayments(status string) {
	paymentsTotal.WithLabelValues(status).Inc()
}
