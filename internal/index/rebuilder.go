package index

import (
	"context"
	"log/slog"
	"sync/atomic"

	"media-observer/internal/observability/metrics"
	"media-observer/internal/queue"
	"media-observer/internal/repository"
)

// Rebuilder waits for the new-embeddings event, builds a fresh index from
// storage, persists it and swaps it in. Readers always see either the old or
// the new complete index, never a half-built one.
type Rebuilder struct {
	storage repository.Storage
	event   *queue.Event
	path    string
	logger  *slog.Logger

	current atomic.Pointer[Index]
}

func NewRebuilder(storage repository.Storage, event *queue.Event, path string, logger *slog.Logger) *Rebuilder {
	return &Rebuilder{
		storage: storage,
		event:   event,
		path:    path,
		logger:  logger.With("component", "indexer"),
	}
}

// Current returns the latest published index, or nil before the first
// successful build.
func (r *Rebuilder) Current() *Index {
	return r.current.Load()
}

// Run rebuilds on every event until cancelled. A failed rebuild leaves the
// previous index in place and clears the event, the next embedding batch
// will trigger another attempt.
func (r *Rebuilder) Run(ctx context.Context) error {
	for {
		if err := r.event.Wait(ctx); err != nil {
			r.logger.Info("indexer stopped")
			return nil
		}

		if err := r.rebuild(ctx); err != nil {
			metrics.RecordIndexRebuild("error", 0)
			r.logger.Error("index rebuild failed", slog.Any("error", err))
		}
		r.event.Clear()
	}
}

func (r *Rebuilder) rebuild(ctx context.Context) error {
	r.logger.Info("starting index rebuild")

	fresh := New(r.path)
	if err := fresh.BuildFromStorage(ctx, r.storage); err != nil {
		return err
	}
	if err := fresh.Save(); err != nil {
		return err
	}

	r.current.Store(fresh)
	metrics.RecordIndexRebuild("success", fresh.Len())
	r.logger.Info("similarity index ready", slog.Int("size", fresh.Len()))
	return nil
}
