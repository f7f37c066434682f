package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestRecordJobProcessed(t *testing.T) {
	before := counterValue(t, JobsProcessedTotal.WithLabelValues("discover", "success"))
	RecordJobProcessed("discover", "success", 250*time.Millisecond)
	after := counterValue(t, JobsProcessedTotal.WithLabelValues("discover", "success"))
	assert.Equal(t, before+1, after)
}

func TestRecordEmbeddingBatch(t *testing.T) {
	before := counterValue(t, EmbeddingsComputedTotal)
	RecordEmbeddingBatch(64, time.Second)
	after := counterValue(t, EmbeddingsComputedTotal)
	assert.Equal(t, before+64, after)
}

func TestRecordIndexRebuildUpdatesSizeOnSuccess(t *testing.T) {
	RecordIndexRebuild("success", 1234)
	assert.Equal(t, float64(1234), gaugeValue(t, IndexSize))

	// A failed rebuild keeps the previous size.
	RecordIndexRebuild("error", 0)
	assert.Equal(t, float64(1234), gaugeValue(t, IndexSize))
}

func TestRecordWatchdogEmission(t *testing.T) {
	before := counterValue(t, WatchdogJobsEmittedTotal)
	RecordWatchdogEmission(35)
	after := counterValue(t, WatchdogJobsEmittedTotal)
	assert.Equal(t, before+35, after)
}
