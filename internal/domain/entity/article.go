// Package entity defines the core domain entities and validation logic for the
// application: sites, front pages, articles, titles and embedding vectors.
// Entities are plain values; persistence identifiers are assigned by the
// storage layer and never leak back into these types.
package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// webArchiveBase is the host that snapshot-relative links are resolved against.
const webArchiveBase = "https://web.archive.org"

// Article is the identity of an article: its original URL with any archive
// wrapping stripped. Two snapshots that link to the same original URL refer to
// the same Article.
type Article struct {
	URL string
}

// Validate checks that the article URL is absolute and carries a scheme.
// A violation here is a programmer error in an extractor, not a data error.
func (a Article) Validate() error {
	u, err := url.Parse(a.URL)
	if err != nil {
		return &ValidationError{Field: "url", Message: fmt.Sprintf("unparseable URL %q: %v", a.URL, err)}
	}
	if !u.IsAbs() {
		return &ValidationError{Field: "url", Message: fmt.Sprintf("expected absolute URL, got %q", a.URL)}
	}
	if u.Scheme == "" {
		return &ValidationError{Field: "url", Message: fmt.Sprintf("expected a scheme in URL, got %q", a.URL)}
	}
	return nil
}

// ArticleSnapshot is one appearance of an article on an archived front page:
// the headline as captured, the archive URL it was linked under, and the
// original article identity.
type ArticleSnapshot struct {
	Title    string
	URL      string // archive URL (web.archive.org wrapping preserved)
	Original Article
}

// NewArticleSnapshot builds an ArticleSnapshot from a raw link found in an
// archived page. The link may be relative to web.archive.org or missing its
// scheme; it is normalised and the original article URL is recovered by
// stripping the /web/<timestamp>/ wrapping.
func NewArticleSnapshot(title, rawURL string) (ArticleSnapshot, error) {
	if strings.TrimSpace(title) == "" {
		return ArticleSnapshot{}, &ValidationError{Field: "title", Message: "empty title"}
	}
	archiveURL, err := CleanWebArchiveURL(rawURL)
	if err != nil {
		return ArticleSnapshot{}, err
	}
	original, err := ExtractURLFromWebArchive(archiveURL)
	if err != nil {
		return ArticleSnapshot{}, err
	}
	snap := ArticleSnapshot{
		Title:    title,
		URL:      archiveURL,
		Original: Article{URL: original},
	}
	return snap, snap.Validate()
}

// Validate checks both the archive URL and the original article URL.
func (s ArticleSnapshot) Validate() error {
	if s.Title == "" {
		return &ValidationError{Field: "title", Message: "empty title"}
	}
	if err := (Article{URL: s.URL}).Validate(); err != nil {
		return err
	}
	return s.Original.Validate()
}

// CleanWebArchiveURL normalises a link extracted from an archived page.
// Relative links are resolved against web.archive.org, scheme-less links get
// https, absolute links pass through unchanged.
func CleanWebArchiveURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &ValidationError{Field: "url", Message: fmt.Sprintf("unparseable URL %q: %v", rawURL, err)}
	}
	switch {
	case u.Scheme == "" && u.Host == "":
		base, _ := url.Parse(webArchiveBase)
		return base.ResolveReference(u).String(), nil
	case u.Scheme == "":
		u.Scheme = "https"
		return u.String(), nil
	default:
		return rawURL, nil
	}
}

// ExtractURLFromWebArchive recovers the original article URL from an archive
// URL of the form http://web.archive.org/web/<timestamp>/<original>.
func ExtractURLFromWebArchive(archiveURL string) (string, error) {
	u, err := url.Parse(archiveURL)
	if err != nil {
		return "", &ValidationError{Field: "url", Message: fmt.Sprintf("unparseable archive URL %q: %v", archiveURL, err)}
	}
	// Path looks like /web/20240522114811/https://www.lemonde.fr/...
	parts := strings.SplitN(u.Path, "/", 4)
	original := parts[len(parts)-1]
	if original == "" {
		return "", &ValidationError{Field: "url", Message: fmt.Sprintf("no wrapped URL in %q", archiveURL)}
	}
	return original, nil
}

// MainArticle is the single article a site visually elevates above all others
// on its front page.
type MainArticle struct {
	Article ArticleSnapshot
}

// TopArticle is one entry of the ranked list a site publishes alongside its
// main article. Rank is 1-based within the front page.
type TopArticle struct {
	Article ArticleSnapshot
	Rank    int
}

// FrontPage is the structured view extracted from one archived capture of a
// site's home page: exactly one main article and the ordered top articles.
type FrontPage struct {
	Main MainArticle
	Top  []TopArticle
}

// Validate enforces the front-page invariants: every URL absolute with a
// scheme, and top-article ranks forming 1..n with no gaps or duplicates.
func (p *FrontPage) Validate() error {
	if err := p.Main.Article.Validate(); err != nil {
		return fmt.Errorf("main article: %w", err)
	}
	for i, t := range p.Top {
		if err := t.Article.Validate(); err != nil {
			return fmt.Errorf("top article %d: %w", i, err)
		}
		if t.Rank != i+1 {
			return &ValidationError{
				Field:   "rank",
				Message: fmt.Sprintf("expected rank %d at position %d, got %d", i+1, i, t.Rank),
			}
		}
	}
	return nil
}
