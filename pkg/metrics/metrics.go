// Package metrics holds the engine's prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_ingest_total",
			Help: "Messages processed by ingest, by resulting action.",
		},
		[]string{"action"},
	)

	FallbackDecisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_fallback_decisions_total",
			Help: "Decisions replaced with the fallback ADD.",
		},
	)

	IndexWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_index_write_failures_total",
			Help: "Similarity index writes that failed after the structured store succeeded.",
		},
		[]string{"op"},
	)

	StaleHitsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "recall_stale_hits_dropped_total",
			Help: "Index hits dropped because the structured record was missing, retired or unreadable.",
		},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_searches_total",
			Help: "Searches executed, by outcome.",
		},
		[]string{"status"},
	)

	RetirementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_retirements_total",
			Help: "Records retired, by relationship type.",
		},
		[]string{"relationship"},
	)

	ReconciledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_reconciled_total",
			Help: "Index entries repaired by reconciliation.",
		},
		[]string{"op"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recall_operation_duration_seconds",
			Help:    "Coordinator operation duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recall_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		IngestTotal,
		FallbackDecisionsTotal,
		IndexWriteFailuresTotal,
		StaleHitsDroppedTotal,
		SearchesTotal,
		RetirementsTotal,
		ReconciledTotal,
		OperationDuration,
		HTTPRequestsTotal,
	)
}
