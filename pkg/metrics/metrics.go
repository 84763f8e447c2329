// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DuplicateGroupsFound tracks duplicate groups discovered per key kind
	DuplicateGroupsFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "groups_found_total",
			Help:      "Total number of duplicate groups discovered by key kind",
		},
		[]string{"kind"},
	)

	// MergesTotal tracks merge outcomes per duplicate by status
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "merges_total",
			Help:      "Total number of per-duplicate merge attempts by status",
		},
		[]string{"status"},
	)

	// MergeDuration tracks how long a single-duplicate merge transaction takes
	MergeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "merge_duration_seconds",
			Help:      "Duration of single-duplicate merge transactions in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// RelinkedRowsTotal tracks dependent rows repointed at a primary client
	RelinkedRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "relinked_rows_total",
			Help:      "Total number of dependent rows relinked to a primary client by table",
		},
		[]string{"table"},
	)

	// BatchRunsTotal tracks batch orchestrator runs by outcome
	BatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "dedup",
			Name:      "batch_runs_total",
			Help:      "Total number of batch merge runs by outcome",
		},
		[]string{"outcome"},
	)
)
