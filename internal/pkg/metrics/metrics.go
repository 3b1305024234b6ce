// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 结账结果标签
const (
	OutcomeCompleted              = "completed"
	OutcomeValidation             = "validation_error"
	OutcomePromotionNotApplicable = "promotion_not_applicable"
	OutcomeInsufficientStock      = "insufficient_stock"
	OutcomeUsageCapExceeded       = "usage_cap_exceeded"
	OutcomeFailed                 = "checkout_failed"
)

var (
	CheckoutTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "checkout_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})

	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pos",
		Name:      "checkout_duration_seconds",
		Help:      "End-to-end checkout latency.",
		Buckets:   prometheus.DefBuckets,
	})

	CommitRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "checkout_commit_retries_total",
		Help:      "Commit attempts retried after a transient persistence error.",
	})

	SaleAmount = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pos",
		Name:      "sale_amount",
		Help:      "Total amount of completed sales.",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	ProjectionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "projection_events_total",
		Help:      "Sale events seen by the report projector by result.",
	}, []string{"result"})
)
