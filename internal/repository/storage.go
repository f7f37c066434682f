// Package repository defines the persistence contract implemented by the
// relational backends. Callers depend on these interfaces, never on a
// concrete database adapter.
package repository

import (
	"context"
	"time"

	"media-observer/internal/domain/entity"
)

// Site is a stored observed site.
type Site struct {
	ID   int64
	Name string
	URL  string
}

// Title is a stored article title awaiting or carrying an embedding.
type Title struct {
	ID   int64
	Text string
}

// Embedding pairs a title with its stored vector.
type Embedding struct {
	TitleID int64
	Text    string
	Vector  []float32
}

// ArticleOnFrontPage is one placement of an article on a captured front page,
// joined with its site and capture instants.
type ArticleOnFrontPage struct {
	FrontPageID int64
	SiteID      int64
	SiteName    string
	TitleID     int64
	Title       string
	URLArticle  string
	ArchivedAt  time.Time
	ScheduledAt time.Time
	IsMain      bool
	// Rank is the 1-based top-article position; 0 for main articles.
	Rank int
}

// NeighbouringMainArticle is a main article close in time to a reference
// capture on the same site.
type NeighbouringMainArticle struct {
	FrontPageID int64
	SiteID      int64
	SiteName    string
	TitleID     int64
	Title       string
	URLArticle  string
	ScheduledAt time.Time
	// TimeDiff is scheduled_at minus the reference instant, in seconds.
	// Zero for simultaneous captures on other sites.
	TimeDiff int64
}

// Capture identifies one archived front page: the instant the archive
// actually captured it, the instant the observer asked for, and the two URLs
// involved.
type Capture struct {
	ArchivedAt  time.Time
	ScheduledAt time.Time
	URLOriginal string
	URLSnapshot string
}

// Storage is the full persistence surface of the observer. Implementations
// must serialise writes internally so pipeline workers can share one handle.
type Storage interface {
	// FrontPageExists reports whether a capture for the site at the given
	// scheduled instant is already stored.
	FrontPageExists(ctx context.Context, siteName string, scheduledAt time.Time) (bool, error)

	// AddPage persists one captured front page in a single transaction:
	// site, frontpage row, every article, title, and the main/top
	// placements. Re-running with the same content is a no-op thanks to
	// the unique constraints. Returns the id of the page's site.
	AddPage(ctx context.Context, collection entity.Collection, page entity.FrontPage, capture Capture) (int64, error)

	// ListSites returns all sites ever stored.
	ListSites(ctx context.Context) ([]Site, error)

	// ListNeighbouringMainArticles returns, for a reference capture, the
	// main articles captured at the same scheduled instant on other
	// sites, plus on the same site the nearest capture strictly after
	// and the nearest strictly before the instant. When scheduledAt is
	// nil the latest stored instant is used.
	ListNeighbouringMainArticles(ctx context.Context, siteID int64, scheduledAt *time.Time) ([]NeighbouringMainArticle, error)

	// ListArticlesOnFrontPage returns every stored placement of the given
	// titles, most recent first. An empty id list yields an empty slice.
	ListArticlesOnFrontPage(ctx context.Context, titleIDs []int64) ([]ArticleOnFrontPage, error)

	// ListTitlesWithoutEmbedding returns titles that have no stored vector.
	ListTitlesWithoutEmbedding(ctx context.Context) ([]Title, error)

	// ListAllEmbeddings streams every stored embedding.
	ListAllEmbeddings(ctx context.Context) ([]Embedding, error)

	// AddEmbedding stores the vector for a title. At most one vector per
	// title is kept; storing again for the same title is a no-op.
	AddEmbedding(ctx context.Context, titleID int64, vector []float32) error

	Close() error
}
