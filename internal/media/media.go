// Package media knows the observed news sites: their archive collections and
// the goquery extractors that turn an archived home page into a structured
// front page.
package media

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"media-observer/internal/domain/entity"
)

// Extractor turns a parsed document into the site's front page.
type Extractor interface {
	// TopArticles returns the ranked most-read list, possibly empty.
	TopArticles(doc *goquery.Document) ([]entity.TopArticle, error)
	// MainArticle returns the single elevated article.
	MainArticle(doc *goquery.Document) (entity.MainArticle, error)
}

// ParseFrontPage runs the extractor registered under parserID against raw
// HTML and validates the result.
func ParseFrontPage(parserID, html string) (entity.FrontPage, error) {
	extractor, ok := extractors[parserID]
	if !ok {
		return entity.FrontPage{}, fmt.Errorf("no extractor registered for %q", parserID)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return entity.FrontPage{}, fmt.Errorf("parse HTML: %w", err)
	}

	top, err := extractor.TopArticles(doc)
	if err != nil {
		return entity.FrontPage{}, fmt.Errorf("top articles: %w", err)
	}
	main, err := extractor.MainArticle(doc)
	if err != nil {
		return entity.FrontPage{}, fmt.Errorf("main article: %w", err)
	}

	page := entity.FrontPage{Main: main, Top: top}
	if err := page.Validate(); err != nil {
		return entity.FrontPage{}, err
	}
	return page, nil
}

// selectUnique returns the single element matching selector, or an error when
// zero or several match.
func selectUnique(s *goquery.Selection, selector string) (*goquery.Selection, error) {
	found := s.Find(selector)
	if found.Length() != 1 {
		return nil, fmt.Errorf("expected a unique element matching %q, found %d", selector, found.Length())
	}
	return found, nil
}

// selectFirst returns the first element matching selector, or an error when
// none match.
func selectFirst(s *goquery.Selection, selector string) (*goquery.Selection, error) {
	found := s.Find(selector)
	if found.Length() == 0 {
		return nil, fmt.Errorf("could not find %q", selector)
	}
	return found.First(), nil
}

func strippedText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

func href(s *goquery.Selection) (string, error) {
	link, ok := s.Attr("href")
	if !ok {
		return "", fmt.Errorf("element %s carries no href", goquery.NodeName(s))
	}
	return link, nil
}

// mainArticle assembles a validated main article from a headline and a raw
// link.
func mainArticle(title, rawURL string) (entity.MainArticle, error) {
	snap, err := entity.NewArticleSnapshot(title, rawURL)
	if err != nil {
		return entity.MainArticle{}, err
	}
	return entity.MainArticle{Article: snap}, nil
}

// topArticle assembles a validated ranked article from a headline, a raw link
// and its 1-based rank.
func topArticle(title, rawURL string, rank int) (entity.TopArticle, error) {
	snap, err := entity.NewArticleSnapshot(title, rawURL)
	if err != nil {
		return entity.TopArticle{}, err
	}
	return entity.TopArticle{Article: snap, Rank: rank}, nil
}
