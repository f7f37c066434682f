package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-observer/internal/domain/entity"
	"media-observer/internal/observability/logging"
	"media-observer/internal/queue"
)

func parisLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	return loc
}

func TestPastInstantsSkipsFutureHours(t *testing.T) {
	paris := parisLocation(t)
	set := queue.NewSet()
	w := NewWatchdog(queue.NewQueue[DiscoverJob](set), nil, 2, []int{8, 12, 18}, logging.NewTextLogger())
	// 14:30 local: today's 18:00 has not happened yet.
	w.now = func() time.Time { return time.Date(2024, 6, 10, 14, 30, 0, 0, paris) }

	instants := w.pastInstants(paris)

	want := []time.Time{
		time.Date(2024, 6, 10, 8, 0, 0, 0, paris),
		time.Date(2024, 6, 10, 12, 0, 0, 0, paris),
		time.Date(2024, 6, 9, 8, 0, 0, 0, paris),
		time.Date(2024, 6, 9, 12, 0, 0, 0, paris),
		time.Date(2024, 6, 9, 18, 0, 0, 0, paris),
		time.Date(2024, 6, 8, 8, 0, 0, 0, paris),
		time.Date(2024, 6, 8, 12, 0, 0, 0, paris),
		time.Date(2024, 6, 8, 18, 0, 0, 0, paris),
	}
	require.Len(t, instants, len(want))
	for i, instant := range want {
		assert.True(t, instant.Equal(instants[i]), "instant %d: want %s got %s", i, instant, instants[i])
	}
}

func TestPastInstantsReachBackFullDaysInPast(t *testing.T) {
	paris := parisLocation(t)
	set := queue.NewSet()
	w := NewWatchdog(queue.NewQueue[DiscoverJob](set), nil, 2, []int{8, 18}, logging.NewTextLogger())
	// 09:30 local: today only 08:00 is reached, the two past days both hours.
	w.now = func() time.Time { return time.Date(2024, 6, 10, 9, 30, 0, 0, paris) }

	instants := w.pastInstants(paris)

	want := []time.Time{
		time.Date(2024, 6, 10, 8, 0, 0, 0, paris),
		time.Date(2024, 6, 9, 8, 0, 0, 0, paris),
		time.Date(2024, 6, 9, 18, 0, 0, 0, paris),
		time.Date(2024, 6, 8, 8, 0, 0, 0, paris),
		time.Date(2024, 6, 8, 18, 0, 0, 0, paris),
	}
	require.Len(t, instants, len(want))
	for i, instant := range want {
		assert.True(t, instant.Equal(instants[i]), "instant %d: want %s got %s", i, instant, instants[i])
	}
}

func TestPendingJobsCoverAllCollections(t *testing.T) {
	paris := parisLocation(t)
	collections := []entity.Collection{
		{Name: "a", URL: "https://a.example", TZ: paris, ParserID: "a"},
		{Name: "b", URL: "https://b.example", TZ: paris, ParserID: "b"},
	}
	set := queue.NewSet()
	w := NewWatchdog(queue.NewQueue[DiscoverJob](set), collections, 1, []int{6}, logging.NewTextLogger())
	w.now = func() time.Time { return time.Date(2024, 6, 10, 23, 0, 0, 0, paris) }

	jobs := w.pendingJobs()

	// Today plus one past day, for each of the two collections.
	require.Len(t, jobs, 4)
	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.Collection.Name)
		assert.NotEqual(t, [16]byte{}, [16]byte(job.ID))
		assert.Equal(t, 6, job.ScheduledAt.Hour())
	}
	assert.ElementsMatch(t, []string{"a", "a", "b", "b"}, names)
}

func TestEmitPutsJobsOnQueue(t *testing.T) {
	paris := parisLocation(t)
	set := queue.NewSet()
	out := queue.NewQueue[DiscoverJob](set)
	collections := []entity.Collection{{Name: "a", URL: "https://a.example", TZ: paris, ParserID: "a"}}
	w := NewWatchdog(out, collections, 1, []int{0, 1}, logging.NewTextLogger())
	w.now = func() time.Time { return time.Date(2024, 6, 10, 2, 0, 0, 0, paris) }

	w.emit()

	assert.Equal(t, 4, out.Len())
	assert.Equal(t, 4, set.Pending())
}
