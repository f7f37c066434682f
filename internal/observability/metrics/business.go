package metrics

import "time"

// RecordJobProcessed records one consumed pipeline job with its outcome and
// execution duration.
func RecordJobProcessed(stage, status string, duration time.Duration) {
	JobsProcessedTotal.WithLabelValues(stage, status).Inc()
	JobDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordArchiveRequest records one outbound archive request.
// Outcomes: ok, gated, throttled, connect_error, http_error.
func RecordArchiveRequest(endpoint, outcome string) {
	ArchiveRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
}

// RecordFrontPageStored records one persisted front page.
func RecordFrontPageStored() {
	FrontPagesStoredTotal.Inc()
}

// RecordWatchdogEmission records discover jobs emitted in one watchdog pass.
func RecordWatchdogEmission(n int) {
	WatchdogJobsEmittedTotal.Add(float64(n))
}

// RecordEmbeddingBatch records one persisted embedding batch.
func RecordEmbeddingBatch(stored int, duration time.Duration) {
	EmbeddingsComputedTotal.Add(float64(stored))
	EmbeddingBatchDuration.Observe(duration.Seconds())
}

// RecordIndexRebuild records one index rebuild attempt and, on success, the
// published index size.
func RecordIndexRebuild(status string, size int) {
	IndexRebuildsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		IndexSize.Set(float64(size))
	}
}
