package snapshot

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"media-observer/internal/domain/entity"
	"media-observer/internal/observability/metrics"
	"media-observer/internal/queue"
)

// Watchdog emits discover jobs once at startup and then at every full hour.
// Emission covers the configured hours of today and the daysInPast preceding
// days per collection, computed in the collection's local time zone; instants
// in the future are skipped. Re-emitting stored pairs is safe, discover skips them.
type Watchdog struct {
	out         *queue.Queue[DiscoverJob]
	collections []entity.Collection
	daysInPast  int
	hours       []int
	logger      *slog.Logger

	now func() time.Time
}

func NewWatchdog(out *queue.Queue[DiscoverJob], collections []entity.Collection, daysInPast int, hours []int, logger *slog.Logger) *Watchdog {
	return &Watchdog{
		out:         out,
		collections: collections,
		daysInPast:  daysInPast,
		hours:       hours,
		logger:      logger.With("component", "watchdog"),
		now:         time.Now,
	}
}

// Run emits immediately, then on the cron schedule until cancelled.
func (w *Watchdog) Run(ctx context.Context) error {
	w.emit()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc("0 * * * *", w.emit); err != nil {
		return err
	}
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	w.logger.Info("watchdog stopped")
	return nil
}

func (w *Watchdog) emit() {
	jobs := w.pendingJobs()
	for _, job := range jobs {
		w.out.Put(job)
	}
	metrics.RecordWatchdogEmission(len(jobs))
	w.logger.Info("emitted discover jobs", slog.Int("count", len(jobs)))
}

func (w *Watchdog) pendingJobs() []DiscoverJob {
	var jobs []DiscoverJob
	for _, collection := range w.collections {
		for _, instant := range w.pastInstants(collection.TZ) {
			jobs = append(jobs, DiscoverJob{
				ID:          uuid.New(),
				Collection:  collection,
				ScheduledAt: instant,
			})
		}
	}
	return jobs
}

// pastInstants lists the configured hours of today and the daysInPast
// preceding days in tz, oldest day last, excluding instants not yet reached.
func (w *Watchdog) pastInstants(tz *time.Location) []time.Time {
	now := w.now().In(tz)
	year, month, day := now.Date()

	var instants []time.Time
	for i := 0; i <= w.daysInPast; i++ {
		for _, hour := range w.hours {
			instant := time.Date(year, month, day-i, hour, 0, 0, 0, tz)
			if instant.Before(now) {
				instants = append(instants, instant)
			}
		}
	}
	return instants
}
