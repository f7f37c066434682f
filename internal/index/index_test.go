package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-observer/internal/domain/entity"
	"media-observer/internal/observability/logging"
	"media-observer/internal/queue"
	"media-observer/internal/repository"
)

type embeddingStorage struct {
	repository.Storage

	embeddings []repository.Embedding
	err        error
}

func (s *embeddingStorage) ListAllEmbeddings(ctx context.Context) ([]repository.Embedding, error) {
	return s.embeddings, s.err
}

// unitVector returns a dimension-sized vector with a single 1 at position i.
func unitVector(i int) []float32 {
	vec := make([]float32, entity.DefaultEmbeddingDimension)
	vec[i] = 1
	return vec
}

// blend returns a normalised-ish mix of two unit directions.
func blend(i, j int, wi, wj float32) []float32 {
	vec := make([]float32, entity.DefaultEmbeddingDimension)
	vec[i] = wi
	vec[j] = wj
	return vec
}

func testStorage() *embeddingStorage {
	return &embeddingStorage{embeddings: []repository.Embedding{
		{TitleID: 1, Text: "a", Vector: unitVector(0)},
		{TitleID: 2, Text: "b", Vector: blend(0, 1, 0.9, 0.1)},
		{TitleID: 3, Text: "c", Vector: blend(0, 1, 0.5, 0.5)},
		{TitleID: 4, Text: "d", Vector: unitVector(1)},
	}}
}

func TestBuildFromStorageEmptyIsAnError(t *testing.T) {
	idx := New(filepath.Join(t.TempDir(), "similarity.index"))
	err := idx.BuildFromStorage(context.Background(), &embeddingStorage{})
	assert.Error(t, err)
}

func TestSearchReturnsDotProductScoresExcludingSelf(t *testing.T) {
	idx := New(filepath.Join(t.TempDir(), "similarity.index"))
	require.NoError(t, idx.BuildFromStorage(context.Background(), testStorage()))
	assert.Equal(t, 4, idx.Len())

	results, err := idx.Search([]int64{1}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].TitleID)

	matches := results[0].Matches
	require.Len(t, matches, 2)

	// Closest to e_0 is the 0.9-blend, then the 0.5-blend.
	assert.Equal(t, int64(2), matches[0].TitleID)
	assert.InDelta(t, 0.9, matches[0].Score, 1e-6)
	assert.Equal(t, int64(3), matches[1].TitleID)
	assert.InDelta(t, 0.5, matches[1].Score, 1e-6)

	for _, m := range matches {
		assert.NotEqual(t, int64(1), m.TitleID)
	}
}

func TestSearchSeveralQueryTitles(t *testing.T) {
	idx := New(filepath.Join(t.TempDir(), "similarity.index"))
	require.NoError(t, idx.BuildFromStorage(context.Background(), testStorage()))

	results, err := idx.Search([]int64{1, 4}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(1), results[0].TitleID)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, int64(2), results[0].Matches[0].TitleID)

	assert.Equal(t, int64(4), results[1].TitleID)
	require.Len(t, results[1].Matches, 1)
	assert.Equal(t, int64(3), results[1].Matches[0].TitleID)
}

func TestSearchAppliesScorePredicate(t *testing.T) {
	idx := New(filepath.Join(t.TempDir(), "similarity.index"))
	require.NoError(t, idx.BuildFromStorage(context.Background(), testStorage()))

	results, err := idx.Search([]int64{1}, 3, func(score float32) bool { return score >= 0.8 })
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, int64(2), results[0].Matches[0].TitleID)
}

func TestSearchFailsOnAnyUnknownTitle(t *testing.T) {
	idx := New(filepath.Join(t.TempDir(), "similarity.index"))
	require.NoError(t, idx.BuildFromStorage(context.Background(), testStorage()))

	_, err := idx.Search([]int64{99}, 3, nil)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	// One known id does not save a batch containing an unknown one.
	_, err = idx.Search([]int64{1, 99}, 3, nil)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity.index")

	idx := New(path)
	require.NoError(t, idx.BuildFromStorage(context.Background(), testStorage()))
	require.NoError(t, idx.Save())

	loaded := New(path)
	require.NoError(t, loaded.Load())
	assert.Equal(t, idx.Len(), loaded.Len())

	results, err := loaded.Search([]int64{1}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Matches, 1)
	assert.Equal(t, int64(2), results[0].Matches[0].TitleID)
	assert.InDelta(t, 0.9, results[0].Matches[0].Score, 1e-6)
}

func TestStaleDetectsNewerFileOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity.index")

	idx := New(path)
	require.NoError(t, idx.BuildFromStorage(context.Background(), testStorage()))
	require.NoError(t, idx.Save())

	loaded := New(path)
	require.NoError(t, loaded.Load())
	assert.False(t, loaded.Stale())

	// A newer build published by another process makes this one stale.
	loaded.mu.Lock()
	loaded.builtAt = loaded.builtAt.Add(-time.Hour)
	loaded.mu.Unlock()
	assert.True(t, loaded.Stale())
}

func TestRebuilderPublishesOnEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "similarity.index")
	event := queue.NewEvent()
	rebuilder := NewRebuilder(testStorage(), event, path, logging.NewTextLogger())

	assert.Nil(t, rebuilder.Current())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rebuilder.Run(ctx)
		close(done)
	}()

	event.Set()

	require.Eventually(t, func() bool {
		return rebuilder.Current() != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 4, rebuilder.Current().Len())
	assert.False(t, event.IsSet())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("rebuilder did not stop")
	}
}
