package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eligibility_evaluations_total",
		Help: "Evaluations by outcome",
	}, []string{"outcome"}) // outcome: completed, locked, fetch_failed

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eligibility_evaluation_duration_seconds",
		Help:    "Wall time of completed evaluations",
		Buckets: prometheus.DefBuckets,
	})

	eligibleCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "eligibility_eligible_candidates",
		Help:    "Eligible candidates per completed evaluation",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
	})
)
