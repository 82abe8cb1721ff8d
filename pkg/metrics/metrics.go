// Package metrics provides Prometheus metrics for the cold-case service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignalsConsumedTotal tracks intake signals consumed from Kafka by topic
	SignalsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldcase",
			Subsystem: "intake",
			Name:      "signals_total",
			Help:      "Total number of intake signals consumed by topic and status",
		},
		[]string{"topic", "status"},
	)

	// SignalsDedupedTotal tracks signals dropped as duplicates
	SignalsDedupedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coldcase",
			Subsystem: "intake",
			Name:      "signals_deduped_total",
			Help:      "Total number of intake signals dropped as duplicates",
		},
	)

	// ClassificationsTotal tracks classification transitions by direction
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldcase",
			Subsystem: "lifecycle",
			Name:      "classifications_total",
			Help:      "Total number of classification state transitions",
		},
		[]string{"tenant_id", "state"},
	)

	// PassDuration tracks batch pass duration in seconds
	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coldcase",
			Subsystem: "batch",
			Name:      "pass_duration_seconds",
			Help:      "Duration of daily batch passes in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"pass"},
	)

	// PassItemsTotal tracks items handled per batch pass by outcome
	PassItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldcase",
			Subsystem: "batch",
			Name:      "pass_items_total",
			Help:      "Total number of items handled per batch pass by outcome",
		},
		[]string{"pass", "outcome"},
	)

	// ReviewsOverdue tracks the number of reviews currently past due
	ReviewsOverdue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "coldcase",
			Subsystem: "reviews",
			Name:      "overdue",
			Help:      "Number of open reviews currently past their due date",
		},
		[]string{"tenant_id"},
	)

	// RecomputeJobsProcessed tracks recompute jobs processed from the queue
	RecomputeJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldcase",
			Subsystem: "recompute",
			Name:      "jobs_processed_total",
			Help:      "Total number of recompute jobs processed by status",
		},
		[]string{"status"},
	)

	// RecomputeJobsInFlight tracks recompute jobs currently being processed
	RecomputeJobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coldcase",
			Subsystem: "recompute",
			Name:      "jobs_in_flight",
			Help:      "Number of recompute jobs currently being processed",
		},
	)

	// RecomputeQueueDepth tracks the recompute stream length
	RecomputeQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coldcase",
			Subsystem: "recompute",
			Name:      "queue_depth",
			Help:      "Approximate number of jobs in the recompute stream",
		},
	)

	// PatternMatchesFound tracks pattern matches recorded by the scan
	PatternMatchesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldcase",
			Subsystem: "patterns",
			Name:      "matches_total",
			Help:      "Total number of pattern matches recorded by the scan",
		},
		[]string{"tenant_id"},
	)

	// CampaignsDispatched tracks campaign dispatch events by type
	CampaignsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coldcase",
			Subsystem: "campaigns",
			Name:      "dispatched_total",
			Help:      "Total number of campaigns dispatched by type",
		},
		[]string{"campaign_type"},
	)
)
