// Package index maintains the approximate-nearest-neighbour index over title
// embeddings and the worker that rebuilds it when new vectors arrive.
package index

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/coder/hnsw"

	"media-observer/internal/domain/entity"
	"media-observer/internal/repository"
)

const (
	// graph tuning, sized for a few hundred thousand titles
	graphM        = 16
	graphEfSearch = 32
)

func init() {
	hnsw.RegisterDistanceFunc("neg-dot", negDotDistance)
}

// negDotDistance orders neighbours by descending dot product. The graph
// wants small-is-close, surfaced scores stay raw dot products.
func negDotDistance(a, b []float32) float32 {
	return -dotProduct(a, b)
}

func dotProduct(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Match is one similarity hit: a title and its dot-product score against the
// query title.
type Match struct {
	TitleID int64
	Score   float32
}

// Result pairs one query title with its ranked matches.
type Result struct {
	TitleID int64
	Matches []Match
}

// metadata is the JSON sidecar persisted next to the graph file.
type metadata struct {
	Dimension int       `json:"dimension"`
	Size      int       `json:"size"`
	BuiltAt   time.Time `json:"built_at"`
}

// Index is an in-memory ANN index over title embeddings, keyed by title id.
// It is safe for concurrent searches; building and loading replace the whole
// graph under the write lock.
type Index struct {
	mu        sync.RWMutex
	graph     *hnsw.Graph[int64]
	dimension int
	builtAt   time.Time
	path      string

	now func() time.Time
}

// New creates an empty index persisting to path (the JSON sidecar lives next
// to it).
func New(path string) *Index {
	return &Index{
		graph:     newGraph(),
		dimension: entity.DefaultEmbeddingDimension,
		path:      path,
		now:       time.Now,
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.Distance = negDotDistance
	g.M = graphM
	g.EfSearch = graphEfSearch
	return g
}

func (idx *Index) metaPath() string {
	return idx.path + ".meta"
}

// Len returns the number of indexed titles.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph.Len()
}

// BuildFromStorage replaces the index contents with every stored embedding.
// An empty embeddings table is an error: serving an empty index would make
// every search silently return nothing.
func (idx *Index) BuildFromStorage(ctx context.Context, storage repository.Storage) error {
	embeddings, err := storage.ListAllEmbeddings(ctx)
	if err != nil {
		return fmt.Errorf("list embeddings: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("no embeddings in storage, have they been computed yet?")
	}

	graph := newGraph()
	for _, emb := range embeddings {
		if err := entity.ValidateVectorDimension(emb.Vector, idx.dimension); err != nil {
			return fmt.Errorf("title %d: %w", emb.TitleID, err)
		}
		graph.Add(hnsw.MakeNode(emb.TitleID, emb.Vector))
	}

	idx.mu.Lock()
	idx.graph = graph
	idx.builtAt = idx.now()
	idx.mu.Unlock()
	return nil
}

// Search returns, for each query title, up to n most similar titles, highest
// dot product first, excluding the query title itself. Results failing accept
// are dropped; pass nil to accept every score. Any query title without an
// indexed embedding fails the whole call.
func (idx *Index) Search(titleIDs []int64, n int, accept func(float32) bool) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	queries := make([][]float32, len(titleIDs))
	for i, titleID := range titleIDs {
		query, ok := idx.graph.Lookup(titleID)
		if !ok {
			return nil, fmt.Errorf("title %d not indexed, has its embedding been computed? %w",
				titleID, entity.ErrNotFound)
		}
		queries[i] = query
	}

	results := make([]Result, len(titleIDs))
	for i, titleID := range titleIDs {
		query := queries[i]

		// One extra neighbour because the query title matches itself.
		neighbours := idx.graph.Search(query, n+1)

		matches := make([]Match, 0, n)
		for _, neighbour := range neighbours {
			if neighbour.Key == titleID {
				continue
			}
			score := dotProduct(query, neighbour.Value)
			if accept != nil && !accept(score) {
				continue
			}
			matches = append(matches, Match{TitleID: neighbour.Key, Score: score})
			if len(matches) == n {
				break
			}
		}
		results[i] = Result{TitleID: titleID, Matches: matches}
	}
	return results, nil
}

// Save persists the graph and its sidecar atomically via temp-file renames.
func (idx *Index) Save() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(idx.path), ".index-*")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := idx.graph.Export(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("export graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), idx.path); err != nil {
		return fmt.Errorf("publish index file: %w", err)
	}

	meta, err := json.Marshal(metadata{
		Dimension: idx.dimension,
		Size:      idx.graph.Len(),
		BuiltAt:   idx.builtAt,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(idx.metaPath(), meta, 0o644); err != nil {
		return fmt.Errorf("write index metadata: %w", err)
	}
	return nil
}

// Load replaces the index contents from disk. The load instant is taken from
// the index file's modification time so Stale works across processes.
func (idx *Index) Load() error {
	file, err := os.Open(idx.path)
	if err != nil {
		return fmt.Errorf("open index file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	graph := newGraph()
	if err := graph.Import(bufio.NewReader(file)); err != nil {
		return fmt.Errorf("import graph: %w", err)
	}

	if raw, err := os.ReadFile(idx.metaPath()); err == nil {
		var meta metadata
		if err := json.Unmarshal(raw, &meta); err == nil && meta.Dimension != idx.dimension {
			return fmt.Errorf("index dimension %d does not match expected %d", meta.Dimension, idx.dimension)
		}
	}

	idx.mu.Lock()
	idx.graph = graph
	idx.builtAt = info.ModTime()
	idx.mu.Unlock()
	return nil
}

// Stale reports whether the on-disk index is newer than this instance, i.e.
// another process has published a rebuild since we loaded.
func (idx *Index) Stale() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	info, err := os.Stat(idx.path)
	if err != nil {
		return false
	}
	return !idx.builtAt.IsZero() && info.ModTime().After(idx.builtAt)
}
