package sequence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Allocation results
const (
	resultSuccess  = "success"
	resultConflict = "conflict"
	resultTimeout  = "timeout"
	resultError    = "error"
)

var (
	allocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sequence_allocations_total",
			Help: "Total number of identifier allocations by result",
		},
		[]string{"entity_type", "result"},
	)

	allocationRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sequence_allocation_retries_total",
			Help: "Total number of allocation attempts re-run after a conflict",
		},
		[]string{"entity_type"},
	)

	allocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sequence_allocation_duration_seconds",
			Help:    "Allocation duration including retries",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"entity_type"},
	)
)
