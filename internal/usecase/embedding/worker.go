// Package embedding runs the background worker that keeps every stored title
// paired with a vector.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"media-observer/internal/observability/metrics"
	"media-observer/internal/queue"
	"media-observer/internal/repository"
)

const (
	// DefaultBatchSize bounds how many titles are embedded per provider call.
	DefaultBatchSize = 64

	// DefaultPollInterval is the pause between polls for new titles.
	DefaultPollInterval = 5 * time.Second
)

// Provider computes embeddings for a batch of texts, one vector per input,
// in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Worker polls storage for titles lacking a vector, embeds them in batches
// and raises the event that wakes the index rebuilder.
type Worker struct {
	storage   repository.Storage
	provider  Provider
	batchSize int
	interval  time.Duration
	event     *queue.Event
	logger    *slog.Logger
}

func NewWorker(storage repository.Storage, provider Provider, event *queue.Event, logger *slog.Logger) *Worker {
	return &Worker{
		storage:   storage,
		provider:  provider,
		batchSize: DefaultBatchSize,
		interval:  DefaultPollInterval,
		event:     event,
		logger:    logger.With("component", "embedder"),
	}
}

// WithBatchSize overrides the per-call batch size. Values below one keep the
// default.
func (w *Worker) WithBatchSize(n int) *Worker {
	if n > 0 {
		w.batchSize = n
	}
	return w
}

// Run loops until cancelled. A failing iteration is logged and retried on
// the next poll; the worker never stops on provider or storage errors.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.step(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("embedding pass failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			w.logger.Info("embedding worker stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// step embeds every title currently missing a vector.
func (w *Worker) step(ctx context.Context) error {
	titles, err := w.storage.ListTitlesWithoutEmbedding(ctx)
	if err != nil {
		return fmt.Errorf("list titles: %w", err)
	}

	for start := 0; start < len(titles); start += w.batchSize {
		end := min(start+w.batchSize, len(titles))
		if err := w.embedBatch(ctx, titles[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) embedBatch(ctx context.Context, batch []repository.Title) error {
	start := time.Now()

	// Duplicate headlines across sites are common; encode each distinct
	// text once.
	unique := make([]string, 0, len(batch))
	seen := make(map[string]int, len(batch))
	for _, title := range batch {
		if _, ok := seen[title.Text]; !ok {
			seen[title.Text] = len(unique)
			unique = append(unique, title.Text)
		}
	}

	vectors, err := w.provider.Embed(ctx, unique)
	if err != nil {
		return fmt.Errorf("embed batch of %d: %w", len(unique), err)
	}
	if len(vectors) != len(unique) {
		return fmt.Errorf("provider returned %d vectors for %d texts", len(vectors), len(unique))
	}

	stored := 0
	for _, title := range batch {
		if err := w.storage.AddEmbedding(ctx, title.ID, vectors[seen[title.Text]]); err != nil {
			return fmt.Errorf("store embedding for title %d: %w", title.ID, err)
		}
		stored++
	}

	metrics.RecordEmbeddingBatch(stored, time.Since(start))
	w.logger.Debug("stored embeddings", slog.Int("count", stored))

	if stored > 0 {
		w.event.Set()
	}
	return nil
}
