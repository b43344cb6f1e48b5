// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mediaforge"

var (
	GenerationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "submitted_total",
			Help:      "Generations accepted for dispatch",
		},
		[]string{"tool"},
	)

	GenerationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "completed_total",
			Help:      "Generations that reached completed",
		},
		[]string{"tool"},
	)

	GenerationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "failed_total",
			Help:      "Generations that reached failed, by cause",
		},
		[]string{"tool", "cause"},
	)

	StaleTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "stale_timeouts_total",
			Help:      "Generations force-failed past the stale threshold",
		},
	)

	CreditsDeducted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "credits_deducted_total",
			Help:      "Credits drawn from account balances",
		},
	)

	CreditsRefunded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "credits_refunded_total",
			Help:      "Credits restored to account balances",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "sweep_duration_seconds",
			Help:      "Reconciliation sweep duration",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	MaterializeFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "materialize",
			Name:      "vendor_url_fallbacks_total",
			Help:      "Completions that kept the vendor URL because upload failed",
		},
	)

	ArtifactsTooLarge = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "materialize",
			Name:      "too_large_total",
			Help:      "Artifacts rejected by the size ceiling (policy boundary)",
		},
	)
)
