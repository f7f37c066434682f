// Package sqlite implements the storage contract on a single-file SQLite
// database, used for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"media-observer/internal/domain/entity"
	"media-observer/internal/repository"
)

// Storage implements repository.Storage on a SQLite handle. The handle must
// be opened with a single connection; that is what serialises writers.
type Storage struct {
	db *sql.DB
}

// NewStorage creates the schema if needed and returns the storage handle.
func NewStorage(handle *sql.DB) (*Storage, error) {
	if err := createSchema(handle); err != nil {
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &Storage{db: handle}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// formatTime renders the canonical stored form of an instant. All stored
// timestamps are UTC RFC 3339 text so string equality is instant equality.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, raw)
}

func (s *Storage) FrontPageExists(ctx context.Context, siteName string, scheduledAt time.Time) (bool, error) {
	const query = `
SELECT 1
FROM frontpages f
JOIN sites s ON s.id = f.site_id
WHERE s.name = ? AND f.timestamp_virtual = ?`
	var one int
	err := s.db.QueryRowContext(ctx, query, siteName, formatTime(scheduledAt)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("FrontPageExists: %w", err)
	}
	return true, nil
}

func (s *Storage) AddPage(ctx context.Context, collection entity.Collection, page entity.FrontPage, capture repository.Capture) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("AddPage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	siteID, err := s.insertOrGet(ctx, tx,
		`INSERT INTO sites (name, original_url) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		`SELECT id FROM sites WHERE name = ?`,
		collection.Name, collection.URL)
	if err != nil {
		return 0, fmt.Errorf("AddPage: site: %w", err)
	}

	frontpageID, err := s.addFrontPage(ctx, tx, siteID, capture)
	if err != nil {
		return 0, fmt.Errorf("AddPage: frontpage: %w", err)
	}

	if err := s.addPlacement(ctx, tx, frontpageID, page.Main.Article, 0); err != nil {
		return 0, fmt.Errorf("AddPage: main article: %w", err)
	}
	for _, top := range page.Top {
		if err := s.addPlacement(ctx, tx, frontpageID, top.Article, top.Rank); err != nil {
			return 0, fmt.Errorf("AddPage: top article %d: %w", top.Rank, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("AddPage: commit: %w", err)
	}
	return siteID, nil
}

func (s *Storage) addFrontPage(ctx context.Context, tx *sql.Tx, siteID int64, capture repository.Capture) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO frontpages (timestamp, site_id, timestamp_virtual, url_original, url_snapshot)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
		formatTime(capture.ArchivedAt), siteID, formatTime(capture.ScheduledAt),
		capture.URLOriginal, capture.URLSnapshot); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM frontpages WHERE timestamp_virtual = ? AND site_id = ?`,
		formatTime(capture.ScheduledAt), siteID).Scan(&id)
	return id, err
}

func (s *Storage) addPlacement(ctx context.Context, tx *sql.Tx, frontpageID int64, snap entity.ArticleSnapshot, rank int) error {
	articleID, err := s.insertOrGet(ctx, tx,
		`INSERT INTO articles (url) VALUES (?) ON CONFLICT DO NOTHING`,
		`SELECT id FROM articles WHERE url = ?`,
		snap.Original.URL)
	if err != nil {
		return err
	}
	titleID, err := s.insertOrGet(ctx, tx,
		`INSERT INTO titles (text) VALUES (?) ON CONFLICT DO NOTHING`,
		`SELECT id FROM titles WHERE text = ?`,
		snap.Title)
	if err != nil {
		return err
	}

	if rank == 0 {
		_, err = tx.ExecContext(ctx, `
INSERT INTO main_articles (frontpage_id, article_id, title_id, url)
VALUES (?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
			frontpageID, articleID, titleID, snap.URL)
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO top_articles (frontpage_id, article_id, title_id, url, rank)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT DO NOTHING`,
		frontpageID, articleID, titleID, snap.URL, rank)
	return err
}

func (s *Storage) insertOrGet(ctx context.Context, tx *sql.Tx, insertStmt, selectStmt string, args ...any) (int64, error) {
	if _, err := tx.ExecContext(ctx, insertStmt, args...); err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRowContext(ctx, selectStmt, args[0]).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Storage) ListSites(ctx context.Context) ([]repository.Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, original_url FROM sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ListSites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sites := make([]repository.Site, 0)
	for rows.Next() {
		var site repository.Site
		if err := rows.Scan(&site.ID, &site.Name, &site.URL); err != nil {
			return nil, fmt.Errorf("ListSites: Scan: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (s *Storage) ListNeighbouringMainArticles(ctx context.Context, siteID int64, scheduledAt *time.Time) ([]repository.NeighbouringMainArticle, error) {
	var ref time.Time
	if scheduledAt != nil {
		ref = *scheduledAt
	} else {
		var raw string
		err := s.db.QueryRowContext(ctx, `
SELECT timestamp_virtual
FROM frontpages_view
WHERE site_id = ?
ORDER BY timestamp_virtual DESC
LIMIT 1`, siteID).Scan(&raw)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: site %d: %w", siteID, entity.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: %w", err)
		}
		ref, err = parseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: %w", err)
		}
	}

	const query = `
WITH aof_diff AS (
    SELECT aof.*,
           CAST(strftime('%s', aof.timestamp_virtual) AS INTEGER) - CAST(strftime('%s', ?2) AS INTEGER) AS time_diff
    FROM articles_on_frontpage_view aof
)
SELECT frontpage_id, site_id, site_name, title_id, title, url_article, timestamp_virtual, time_diff FROM (
    SELECT * FROM aof_diff
    WHERE is_main AND time_diff = 0
)
UNION ALL
SELECT frontpage_id, site_id, site_name, title_id, title, url_article, timestamp_virtual, time_diff FROM (
    SELECT * FROM aof_diff
    WHERE is_main AND site_id = ?1 AND time_diff > 0
    ORDER BY time_diff
    LIMIT 1
)
UNION ALL
SELECT frontpage_id, site_id, site_name, title_id, title, url_article, timestamp_virtual, time_diff FROM (
    SELECT * FROM aof_diff
    WHERE is_main AND site_id = ?1 AND time_diff < 0
    ORDER BY time_diff DESC
    LIMIT 1
)`

	rows, err := s.db.QueryContext(ctx, query, siteID, formatTime(ref))
	if err != nil {
		return nil, fmt.Errorf("ListNeighbouringMainArticles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]repository.NeighbouringMainArticle, 0)
	for rows.Next() {
		var article repository.NeighbouringMainArticle
		var scheduled string
		if err := rows.Scan(&article.FrontPageID, &article.SiteID, &article.SiteName,
			&article.TitleID, &article.Title, &article.URLArticle,
			&scheduled, &article.TimeDiff); err != nil {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: Scan: %w", err)
		}
		if article.ScheduledAt, err = parseTime(scheduled); err != nil {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: %w", err)
		}
		result = append(result, article)
	}
	return result, rows.Err()
}

func (s *Storage) ListArticlesOnFrontPage(ctx context.Context, titleIDs []int64) ([]repository.ArticleOnFrontPage, error) {
	if len(titleIDs) == 0 {
		return []repository.ArticleOnFrontPage{}, nil
	}

	query := `
SELECT frontpage_id, site_id, site_name, title_id, title, url_article, timestamp, timestamp_virtual, is_main, rank
FROM articles_on_frontpage_view
WHERE title_id IN (`
	args := make([]any, len(titleIDs))
	for i, id := range titleIDs {
		if i > 0 {
			query += ", "
		}
		query += "?"
		args[i] = id
	}
	query += `)
ORDER BY timestamp_virtual DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListArticlesOnFrontPage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]repository.ArticleOnFrontPage, 0)
	for rows.Next() {
		var row repository.ArticleOnFrontPage
		var archived, scheduled string
		var rank sql.NullInt64
		if err := rows.Scan(&row.FrontPageID, &row.SiteID, &row.SiteName,
			&row.TitleID, &row.Title, &row.URLArticle,
			&archived, &scheduled, &row.IsMain, &rank); err != nil {
			return nil, fmt.Errorf("ListArticlesOnFrontPage: Scan: %w", err)
		}
		if row.ArchivedAt, err = parseTime(archived); err != nil {
			return nil, fmt.Errorf("ListArticlesOnFrontPage: %w", err)
		}
		if row.ScheduledAt, err = parseTime(scheduled); err != nil {
			return nil, fmt.Errorf("ListArticlesOnFrontPage: %w", err)
		}
		row.Rank = int(rank.Int64)
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *Storage) ListTitlesWithoutEmbedding(ctx context.Context) ([]repository.Title, error) {
	const query = `
SELECT t.id, t.text
FROM titles AS t
WHERE NOT EXISTS (SELECT 1 FROM embeddings WHERE title_id = t.id)`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListTitlesWithoutEmbedding: %w", err)
	}
	defer func() { _ = rows.Close() }()

	titles := make([]repository.Title, 0)
	for rows.Next() {
		var title repository.Title
		if err := rows.Scan(&title.ID, &title.Text); err != nil {
			return nil, fmt.Errorf("ListTitlesWithoutEmbedding: Scan: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

func (s *Storage) ListAllEmbeddings(ctx context.Context) ([]repository.Embedding, error) {
	const query = `
SELECT e.title_id, t.text, e.vector
FROM embeddings e
JOIN titles t ON t.id = e.title_id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAllEmbeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	embeddings := make([]repository.Embedding, 0)
	for rows.Next() {
		var emb repository.Embedding
		var raw []byte
		if err := rows.Scan(&emb.TitleID, &emb.Text, &raw); err != nil {
			return nil, fmt.Errorf("ListAllEmbeddings: Scan: %w", err)
		}
		vec, err := entity.DecodeVector(raw)
		if err != nil {
			return nil, fmt.Errorf("ListAllEmbeddings: title %d: %w", emb.TitleID, err)
		}
		emb.Vector = vec
		embeddings = append(embeddings, emb)
	}
	return embeddings, rows.Err()
}

func (s *Storage) AddEmbedding(ctx context.Context, titleID int64, vector []float32) error {
	if err := entity.ValidateVectorDimension(vector, entity.DefaultEmbeddingDimension); err != nil {
		return fmt.Errorf("AddEmbedding: %w", err)
	}
	const query = `
INSERT INTO embeddings (title_id, vector)
VALUES (?, ?)
ON CONFLICT DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, titleID, entity.EncodeVector(vector)); err != nil {
		return fmt.Errorf("AddEmbedding: %w", err)
	}
	return nil
}

var _ repository.Storage = (*Storage)(nil)
