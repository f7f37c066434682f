// Package snapshot drives the capture pipeline: the watchdog that emits
// discovery jobs on wall-clock boundaries and the four staged workers that
// turn a (site, instant) pair into persisted front-page rows.
package snapshot

import (
	"time"

	"github.com/google/uuid"

	"media-observer/internal/archive"
	"media-observer/internal/domain/entity"
)

// Job is implemented by every pipeline job. The identifier is minted by the
// watchdog and carried through all successor jobs so log lines of one chain
// correlate.
type Job interface {
	JobID() uuid.UUID
}

// DiscoverJob asks the archive for the capture of a collection's front page
// closest to the scheduled instant.
type DiscoverJob struct {
	ID          uuid.UUID
	Collection  entity.Collection
	ScheduledAt time.Time
}

func (j DiscoverJob) JobID() uuid.UUID { return j.ID }

// FetchJob retrieves the body of a located capture.
type FetchJob struct {
	ID          uuid.UUID
	SnapshotID  archive.SnapshotID
	Collection  entity.Collection
	ScheduledAt time.Time
}

func (j FetchJob) JobID() uuid.UUID { return j.ID }

// ParseJob extracts the structured front page from a fetched capture.
type ParseJob struct {
	ID          uuid.UUID
	Collection  entity.Collection
	Snapshot    archive.Snapshot
	ScheduledAt time.Time
}

func (j ParseJob) JobID() uuid.UUID { return j.ID }

// StoreJob persists a parsed front page.
type StoreJob struct {
	ID          uuid.UUID
	Page        entity.FrontPage
	Collection  entity.Collection
	SnapshotID  archive.SnapshotID
	ScheduledAt time.Time
}

func (j StoreJob) JobID() uuid.UUID { return j.ID }
