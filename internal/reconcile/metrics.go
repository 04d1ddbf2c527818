package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Requests counts media operations by the source that served them.
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_media_requests_total",
			Help: "Media operations by op and serving source",
		},
		[]string{"op", "source"},
	)

	// Passes counts reconciliation passes by outcome.
	Passes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediahub_reconcile_passes_total",
			Help: "Reconciliation passes by outcome",
		},
		[]string{"outcome"},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mediahub_media_api_breaker_state",
			Help: "Media API circuit breaker state",
		},
	)
)
