// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics track job flow through the snapshot stages.
var (
	// JobsProcessedTotal counts jobs consumed per stage and outcome.
	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_jobs_processed_total",
			Help: "Total number of pipeline jobs processed",
		},
		[]string{"stage", "status"},
	)

	// JobDuration measures stage execution duration in seconds.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_job_duration_seconds",
			Help:    "Pipeline job execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// JobsInFlight tracks items put on queues but not yet completed.
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeline_jobs_in_flight",
			Help: "Number of enqueued jobs not yet marked done",
		},
	)

	// FrontPagesStoredTotal counts front pages persisted by the store stage.
	FrontPagesStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frontpages_stored_total",
			Help: "Total number of front pages written to storage",
		},
	)

	// WatchdogJobsEmittedTotal counts discover jobs emitted by the watchdog.
	WatchdogJobsEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "watchdog_jobs_emitted_total",
			Help: "Total number of discover jobs emitted by the watchdog",
		},
	)
)

// Archive metrics track outbound traffic to the web archive.
var (
	// ArchiveRequestsTotal counts archive requests per endpoint and outcome.
	ArchiveRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_requests_total",
			Help: "Total number of outbound archive requests by outcome",
		},
		[]string{"endpoint", "outcome"},
	)
)

// Embedding and index metrics.
var (
	// EmbeddingsComputedTotal counts persisted title embeddings.
	EmbeddingsComputedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "embeddings_computed_total",
			Help: "Total number of title embeddings computed and stored",
		},
	)

	// EmbeddingBatchDuration measures the duration of one embedding batch.
	EmbeddingBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "embedding_batch_duration_seconds",
			Help:    "Duration of one embedding batch computation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// IndexRebuildsTotal counts similarity index rebuilds by status.
	IndexRebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarity_index_rebuilds_total",
			Help: "Total number of similarity index rebuilds",
		},
		[]string{"status"},
	)

	// IndexSize tracks the number of vectors in the published index.
	IndexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "similarity_index_size",
			Help: "Number of vectors in the current similarity index",
		},
	)
)
