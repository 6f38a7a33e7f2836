package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashme_quotes_total",
		Help: "Quotes computed, by token and result.",
	}, []string{"token", "result"})

	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cashme_payments_total",
		Help: "Payments attempted, by token and outcome.",
	}, []string{"token", "status"})

	DailyLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cashme_daily_limit_rejections_total",
		Help: "Quotes or deductions rejected by a merchant's remaining daily limit.",
	})

	RankedMerchants = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cashme_discover_merchants",
		Help:    "Number of merchants returned by discovery.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cashme_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
