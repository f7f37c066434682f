package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"media-observer/internal/observability/logging"
	"media-observer/internal/observability/metrics"
	"media-observer/internal/observability/tracing"
	"media-observer/internal/queue"
)

// Handler executes one job and returns its successor jobs.
type Handler[In Job, Out Job] func(ctx context.Context, job In) ([]Out, error)

// Worker consumes one queue and feeds an optional successor queue. Failures
// are logged and the job dropped; the loop never stops on a job error.
type Worker[In Job, Out Job] struct {
	stage  string
	in     *queue.Queue[In]
	out    *queue.Queue[Out] // nil for the terminal stage
	handle Handler[In, Out]
	logger *slog.Logger
}

// NewWorker binds a stage handler between two queues. Pass a nil outbound
// queue for the terminal stage.
func NewWorker[In Job, Out Job](stage string, in *queue.Queue[In], out *queue.Queue[Out], handle Handler[In, Out], logger *slog.Logger) *Worker[In, Out] {
	return &Worker[In, Out]{
		stage:  stage,
		in:     in,
		out:    out,
		handle: handle,
		logger: logger.With("stage", stage),
	}
}

// Run processes jobs until the context is cancelled.
func (w *Worker[In, Out]) Run(ctx context.Context) error {
	w.logger.Info("worker started")
	for {
		job, err := w.in.Get(ctx)
		if err != nil {
			w.logger.Info("worker stopping", slog.Any("reason", context.Cause(ctx)))
			return nil
		}
		w.step(ctx, job)
	}
}

func (w *Worker[In, Out]) step(ctx context.Context, job In) {
	defer w.in.TaskDone()

	logger := logging.WithJobID(w.logger, job.JobID())
	spanCtx, span := tracing.GetTracer().Start(ctx, "pipeline."+w.stage)
	span.SetAttributes(attribute.String("job_id", job.JobID().String()))
	defer span.End()

	start := time.Now()
	successors, err := w.handle(logging.WithLogger(spanCtx, logger), job)

	status := "success"
	if err != nil {
		status = "error"
		if !errors.Is(err, context.Canceled) {
			logger.Warn("job failed", slog.Any("error", err))
		}
	}
	metrics.RecordJobProcessed(w.stage, status, time.Since(start))

	if w.out == nil {
		if len(successors) > 0 {
			logger.Error("dropping successor jobs: no outbound queue",
				slog.Int("count", len(successors)))
		}
		return
	}
	for _, successor := range successors {
		w.out.Put(successor)
	}
}
