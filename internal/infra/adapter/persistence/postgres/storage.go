// Package postgres implements the storage contract on PostgreSQL with
// pgvector-backed embedding columns.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"media-observer/internal/domain/entity"
	"media-observer/internal/repository"
)

// Storage implements repository.Storage on a PostgreSQL handle. Concurrent
// use is safe; write conflicts are absorbed by the unique indexes.
type Storage struct {
	db *sql.DB
}

// NewStorage creates the schema if needed and returns the storage handle.
func NewStorage(handle *sql.DB) (*Storage, error) {
	if err := createSchema(handle); err != nil {
		return nil, fmt.Errorf("create postgres schema: %w", err)
	}
	return &Storage{db: handle}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) FrontPageExists(ctx context.Context, siteName string, scheduledAt time.Time) (bool, error) {
	const query = `
SELECT 1
FROM frontpages f
JOIN sites s ON s.id = f.site_id
WHERE s.name = $1 AND f.timestamp_virtual = $2`
	var one int
	err := s.db.QueryRowContext(ctx, query, siteName, scheduledAt).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("FrontPageExists: %w", err)
	}
	return true, nil
}

// AddPage stores one capture atomically. Every insert uses ON CONFLICT DO
// NOTHING followed by a select, so replaying the same capture changes
// nothing.
func (s *Storage) AddPage(ctx context.Context, collection entity.Collection, page entity.FrontPage, capture repository.Capture) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("AddPage: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	siteID, err := s.addSite(ctx, tx, collection.Name, collection.URL)
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

// addPlacement stores the article, its title and the placement row. A rank
// of zero means the main-article slot.
func (s *Storage) addPlacement(ctx context.Context, tx *sql.Tx, frontpageID int64, snap entity.ArticleSnapshot, rank int) error {
	articleID, err := s.insertOrGet(ctx, tx,
		`INSERT INTO articles (url) VALUES ($1) ON CONFLICT DO NOTHING`,
		`SELECT id FROM articles WHERE url = $1`,
		snap.Original.URL)
	if err != nil {
		return err
	}
	titleID, err := s.insertOrGet(ctx, tx,
		`INSERT INTO titles (text) VALUES ($1) ON CONFLICT DO NOTHING`,
		`SELECT id FROM titles WHERE text = $1`,
		snap.Title)
	if err != nil {
		return err
	}

	if rank == 0 {
		_, err = tx.ExecContext(ctx, `
INSERT INTO main_articles (frontpage_id, article_id, title_id, url)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING`,
			frontpageID, articleID, titleID, snap.URL)
		return err
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO top_articles (frontpage_id, article_id, title_id, url, rank)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING`,
		frontpageID, articleID, titleID, snap.URL, rank)
	return err
}

func (s *Storage) addSite(ctx context.Context, tx *sql.Tx, name, originalURL string) (int64, error) {
	return s.insertOrGet(ctx, tx,
		`INSERT INTO sites (name, original_url) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		`SELECT id FROM sites WHERE name = $1`,
		name, originalURL)
}

func (s *Storage) addFrontPage(ctx context.Context, tx *sql.Tx, siteID int64, capture repository.Capture) (int64, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO frontpages (timestamp, site_id, timestamp_virtual, url_original, url_snapshot)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING`,
		capture.ArchivedAt, siteID, capture.ScheduledAt, capture.URLOriginal, capture.URLSnapshot); err != nil {
		return 0, err
	}
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM frontpages WHERE timestamp_virtual = $1 AND site_id = $2`,
		capture.ScheduledAt, siteID).Scan(&id)
	return id, err
}

// insertOrGet runs the idempotent insert, then selects the row id using the
// insert's first argument as the natural key.
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

// ListNeighbouringMainArticles unions three result sets: every main article
// captured at the reference instant, and on the reference site the nearest
// capture after and the nearest before.
func (s *Storage) ListNeighbouringMainArticles(ctx context.Context, siteID int64, scheduledAt *time.Time) ([]repository.NeighbouringMainArticle, error) {
	ref := time.Time{}
	if scheduledAt != nil {
		ref = *scheduledAt
	} else {
		err := s.db.QueryRowContext(ctx, `
SELECT timestamp_virtual
FROM frontpages_view
WHERE site_id = $1
ORDER BY timestamp_virtual DESC
LIMIT 1`, siteID).Scan(&ref)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: site %d: %w", siteID, entity.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: %w", err)
		}
	}

	const query = `
WITH aof_diff AS (
    SELECT aof.*, EXTRACT(EPOCH FROM aof.timestamp_virtual - $2) :: integer AS time_diff
    FROM articles_on_frontpage_view aof
)
SELECT frontpage_id, site_id, site_name, title_id, title, url_article, timestamp_virtual, time_diff FROM (
    SELECT * FROM aof_diff
    WHERE is_main AND time_diff = 0
) same_instant
UNION ALL
SELECT frontpage_id, site_id, site_name, title_id, title, url_article, timestamp_virtual, time_diff FROM (
    SELECT * FROM aof_diff
    WHERE is_main AND site_id = $1 AND time_diff > 0
    ORDER BY time_diff
    LIMIT 1
) just_after
UNION ALL
SELECT frontpage_id, site_id, site_name, title_id, title, url_article, timestamp_virtual, time_diff FROM (
    SELECT * FROM aof_diff
    WHERE is_main AND site_id = $1 AND time_diff < 0
    ORDER BY time_diff DESC
    LIMIT 1
) just_before`

	rows, err := s.db.QueryContext(ctx, query, siteID, ref)
	if err != nil {
		return nil, fmt.Errorf("ListNeighbouringMainArticles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := make([]repository.NeighbouringMainArticle, 0)
	for rows.Next() {
		var article repository.NeighbouringMainArticle
		if err := rows.Scan(&article.FrontPageID, &article.SiteID, &article.SiteName,
			&article.TitleID, &article.Title, &article.URLArticle,
			&article.ScheduledAt, &article.TimeDiff); err != nil {
			return nil, fmt.Errorf("ListNeighbouringMainArticles: Scan: %w", err)
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
		query += fmt.Sprintf("$%d", i+1)
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
		var rank sql.NullInt64
		if err := rows.Scan(&row.FrontPageID, &row.SiteID, &row.SiteName,
			&row.TitleID, &row.Title, &row.URLArticle,
			&row.ArchivedAt, &row.ScheduledAt, &row.IsMain, &rank); err != nil {
			return nil, fmt.Errorf("ListArticlesOnFrontPage: Scan: %w", err)
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
		var vec pgvector.Vector
		if err := rows.Scan(&emb.TitleID, &emb.Text, &vec); err != nil {
			return nil, fmt.Errorf("ListAllEmbeddings: Scan: %w", err)
		}
		emb.Vector = vec.Slice()
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
VALUES ($1, $2)
ON CONFLICT DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, titleID, pgvector.NewVector(vector)); err != nil {
		return fmt.Errorf("AddEmbedding: %w", err)
	}
	return nil
}

var _ repository.Storage = (*Storage)(nil)
