package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"media-observer/internal/archive"
	"media-observer/internal/media"
	"media-observer/internal/observability/logging"
	"media-observer/internal/observability/metrics"
	"media-observer/internal/repository"
)

// maxDeviation is how far a capture may lie from its scheduled instant
// before the discover stage warns about it.
const maxDeviation = time.Hour

// ArchiveClient is the slice of the archive client the pipeline needs.
type ArchiveClient interface {
	FindClosest(ctx context.Context, pageURL string, target time.Time) (archive.SnapshotID, error)
	Fetch(ctx context.Context, id archive.SnapshotID) (archive.Snapshot, error)
}

// Pipeline carries the stage handlers' shared dependencies.
type Pipeline struct {
	storage     repository.Storage
	client      ArchiveClient
	diagnostics *Diagnostics
}

func NewPipeline(storage repository.Storage, client ArchiveClient, diagnostics *Diagnostics) *Pipeline {
	return &Pipeline{
		storage:     storage,
		client:      client,
		diagnostics: diagnostics,
	}
}

// Discover resolves a (collection, instant) pair to the closest capture.
// Already-stored pairs are skipped, so watchdog re-emission is harmless.
func (p *Pipeline) Discover(ctx context.Context, job DiscoverJob) ([]FetchJob, error) {
	logger := logging.FromContext(ctx)

	exists, err := p.storage.FrontPageExists(ctx, job.Collection.Name, job.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("existence check for %s @ %s: %w",
			job.Collection.Name, job.ScheduledAt.Format(time.RFC3339), err)
	}
	if exists {
		return nil, nil
	}

	logger.Debug("looking for capture",
		slog.String("collection", job.Collection.Name),
		slog.Time("scheduled_at", job.ScheduledAt))

	id, err := p.client.FindClosest(ctx, job.Collection.URL, job.ScheduledAt)
	if err != nil {
		if errors.Is(err, archive.ErrNotYetAvailable) {
			logger.Warn("capture not yet available",
				slog.String("collection", job.Collection.Name),
				slog.Time("scheduled_at", job.ScheduledAt))
			return nil, nil
		}
		return nil, err
	}

	captured, err := id.Time()
	if err != nil {
		return nil, err
	}
	if delta := job.ScheduledAt.Sub(captured).Abs(); delta > maxDeviation {
		side := "before"
		if captured.After(job.ScheduledAt) {
			side = "after"
		}
		logger.Warn("capture far from scheduled instant",
			slog.String("collection", job.Collection.Name),
			slog.Duration("deviation", delta),
			slog.String("side", side),
			slog.Time("captured_at", captured),
			slog.Time("scheduled_at", job.ScheduledAt))
	}

	logger.Info("found capture", slog.String("url", id.URL()))
	return []FetchJob{{
		ID:          job.ID,
		SnapshotID:  id,
		Collection:  job.Collection,
		ScheduledAt: job.ScheduledAt,
	}}, nil
}

// Fetch retrieves the capture body verbatim.
func (p *Pipeline) Fetch(ctx context.Context, job FetchJob) ([]ParseJob, error) {
	snap, err := p.client.Fetch(ctx, job.SnapshotID)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", job.SnapshotID.URL(), err)
	}
	return []ParseJob{{
		ID:          job.ID,
		Collection:  job.Collection,
		Snapshot:    snap,
		ScheduledAt: job.ScheduledAt,
	}}, nil
}

// Parse extracts the structured front page. On failure the offending HTML is
// dumped for later inspection before the job is dropped.
func (p *Pipeline) Parse(ctx context.Context, job ParseJob) ([]StoreJob, error) {
	page, err := media.ParseFrontPage(job.Collection.ParserID, job.Snapshot.Text)
	if err != nil {
		if p.diagnostics != nil {
			dir, dumpErr := p.diagnostics.Dump(job.Snapshot, err)
			if dumpErr != nil {
				logging.FromContext(ctx).Error("failed to write parse diagnostics",
					slog.Any("error", dumpErr))
			} else {
				logging.FromContext(ctx).Error("parse failed, details dumped",
					slog.String("url", job.Snapshot.ID.URL()),
					slog.String("dir", dir))
			}
		}
		return nil, fmt.Errorf("parse %s: %w", job.Snapshot.ID.URL(), err)
	}
	return []StoreJob{{
		ID:          job.ID,
		Page:        page,
		Collection:  job.Collection,
		SnapshotID:  job.Snapshot.ID,
		ScheduledAt: job.ScheduledAt,
	}}, nil
}

// Store persists the front page. Terminal stage.
func (p *Pipeline) Store(ctx context.Context, job StoreJob) ([]StoreJob, error) {
	archivedAt, err := job.SnapshotID.Time()
	if err != nil {
		return nil, err
	}
	capture := repository.Capture{
		ArchivedAt:  archivedAt,
		ScheduledAt: job.ScheduledAt,
		URLOriginal: job.SnapshotID.Original,
		URLSnapshot: job.SnapshotID.URL(),
	}
	siteID, err := p.storage.AddPage(ctx, job.Collection, job.Page, capture)
	if err != nil {
		return nil, fmt.Errorf("store %s @ %s: %w",
			job.Collection.Name, job.ScheduledAt.Format(time.RFC3339), err)
	}
	metrics.RecordFrontPageStored()
	logging.FromContext(ctx).Info("front page stored",
		slog.String("collection", job.Collection.Name),
		slog.Int64("site_id", siteID),
		slog.Time("scheduled_at", job.ScheduledAt))
	return nil, nil
}
