package postgres

import "database/sql"

// createSchema creates the tables, unique indexes and read views. Every
// statement is idempotent so startup can run this unconditionally.
func createSchema(handle *sql.DB) error {
	// Without the extension embeddings fall back to raw byte storage, so
	// a missing superuser grant is not fatal here. The table DDL below
	// will surface the real error if the type is absent.
	_, _ = handle.Exec(`CREATE EXTENSION IF NOT EXISTS vector`)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS sites (
    id           SERIAL PRIMARY KEY,
    name         TEXT NOT NULL,
    original_url TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS frontpages (
    id                SERIAL PRIMARY KEY,
    site_id           INTEGER NOT NULL REFERENCES sites(id) ON DELETE CASCADE,
    timestamp         TIMESTAMPTZ NOT NULL,
    timestamp_virtual TIMESTAMPTZ NOT NULL,
    url_original      TEXT NOT NULL,
    url_snapshot      TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS articles (
    id  SERIAL PRIMARY KEY,
    url TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS titles (
    id   SERIAL PRIMARY KEY,
    text TEXT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS main_articles (
    id           SERIAL PRIMARY KEY,
    url          TEXT NOT NULL,
    frontpage_id INTEGER NOT NULL REFERENCES frontpages(id) ON DELETE CASCADE,
    article_id   INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    title_id     INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE
)`,
		`CREATE TABLE IF NOT EXISTS top_articles (
    id           SERIAL PRIMARY KEY,
    url          TEXT NOT NULL,
    rank         INTEGER NOT NULL,
    frontpage_id INTEGER NOT NULL REFERENCES frontpages(id) ON DELETE CASCADE,
    article_id   INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
    title_id     INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE
)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
    id       SERIAL PRIMARY KEY,
    title_id INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
    vector   vector(1024) NOT NULL
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sites_name ON sites(name)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_frontpages_timestamp_virtual_site_id ON frontpages(timestamp_virtual, site_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_url ON articles(url)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_titles_text ON titles(text)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_main_articles_frontpage_id_article_id ON main_articles(frontpage_id, article_id)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_top_articles_frontpage_id_article_id_rank ON top_articles(frontpage_id, article_id, rank)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_embeddings_title_id ON embeddings(title_id)`,
		`CREATE OR REPLACE VIEW frontpages_view AS
SELECT
    fp.id,
    si.id AS site_id,
    si.name AS site_name,
    si.original_url AS site_original_url,
    fp.timestamp,
    fp.timestamp_virtual
FROM frontpages AS fp
JOIN sites AS si ON si.id = fp.site_id`,
		`CREATE OR REPLACE VIEW articles_view AS
SELECT
    a.id,
    t.text AS title,
    t.id AS title_id,
    ma.url AS url_archive,
    a.url AS url_article,
    ma.frontpage_id AS main_in_frontpage_id,
    NULL::integer AS top_in_frontpage_id,
    NULL::integer AS rank
FROM articles a
JOIN main_articles ma ON ma.article_id = a.id
JOIN titles t ON t.id = ma.title_id
UNION ALL
SELECT
    a.id,
    t.text AS title,
    t.id AS title_id,
    ta.url AS url_archive,
    a.url AS url_article,
    NULL::integer AS main_in_frontpage_id,
    ta.frontpage_id AS top_in_frontpage_id,
    ta.rank
FROM articles a
JOIN top_articles ta ON ta.article_id = a.id
JOIN titles t ON t.id = ta.title_id`,
		`CREATE OR REPLACE VIEW articles_on_frontpage_view AS
SELECT
    fpv.id AS frontpage_id,
    fpv.site_id,
    fpv.site_name,
    fpv.site_original_url,
    fpv."timestamp",
    fpv.timestamp_virtual,
    av.id AS article_id,
    av.title,
    av.title_id,
    av.url_archive,
    av.url_article,
    av.main_in_frontpage_id IS NOT NULL AS is_main,
    av.rank
FROM articles_view av
JOIN frontpages_view fpv ON fpv.id = av.main_in_frontpage_id OR fpv.id = av.top_in_frontpage_id`,
	}

	for _, stmt := range statements {
		if _, err := handle.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
