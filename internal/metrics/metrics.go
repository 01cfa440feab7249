// Package metrics declares the tiering engine's prometheus metrics as
// package-level promauto vars, grouped by concern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Migration metrics, labeled by the "<source>-><target>" tier pair.
var (
	MigrationsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieringd_migrations_started_total",
			Help: "Total migrations dispatched to the worker pool.",
		},
		[]string{"tier_pair"},
	)

	MigrationsSucceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieringd_migrations_succeeded_total",
			Help: "Total migrations that completed successfully.",
		},
		[]string{"tier_pair"},
	)

	MigrationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieringd_migrations_failed_total",
			Help: "Total migrations that failed permanently after exhausting retries.",
		},
		[]string{"tier_pair"},
	)

	MigrationsRetried = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieringd_migrations_retried_total",
			Help: "Total migration attempts re-enqueued to the retry queue.",
		},
		[]string{"tier_pair"},
	)
)

// Queue depth gauges.
var (
	MoveQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tieringd_move_queue_depth",
		Help: "Current number of pending requests in the move queue.",
	})

	RetryQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tieringd_retry_queue_depth",
		Help: "Current number of pending requests in the retry queue.",
	})

	QueueDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tieringd_queue_drops_total",
			Help: "Total requests dropped on enqueue because a queue was full.",
		},
		[]string{"queue"},
	)
)

// Per-tier capacity gauges.
var (
	TierBytesUsed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tieringd_tier_bytes_used",
			Help: "Bytes currently used in a tier's filesystem.",
		},
		[]string{"tier"},
	)

	TierBytesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tieringd_tier_bytes_total",
			Help: "Total byte capacity of a tier's filesystem.",
		},
		[]string{"tier"},
	)
)

// Metadata Store and pass-duration metrics.
var (
	MetadataRecordCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tieringd_metadata_record_count",
		Help: "Number of files observed across all tiers by the last Decision Engine pass.",
	})

	DecisionPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tieringd_decision_pass_duration_seconds",
		Help:    "Wall-clock duration of a Decision Engine pass.",
		Buckets: prometheus.DefBuckets,
	})

	MaintenancePassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tieringd_maintenance_pass_duration_seconds",
		Help:    "Wall-clock duration of a Maintenance Reconciler pass.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	GhostEntriesPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tieringd_ghost_entries_pruned_total",
		Help: "Total metadata records pruned because their file no longer exists in any tier.",
	})
)
