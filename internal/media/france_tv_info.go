package media

import (
	"github.com/PuerkitoBio/goquery"

	"media-observer/internal/domain/entity"
)

type franceTVInfo struct{}

func (franceTVInfo) TopArticles(doc *goquery.Document) ([]entity.TopArticle, error) {
	var result []entity.TopArticle
	for i, s := range doc.Find("article.card-article-most-read").EachIter() {
		title, err := selectUnique(s, "p.card-article-most-read__title")
		if err != nil {
			return nil, err
		}
		link, err := selectUnique(s, "a")
		if err != nil {
			return nil, err
		}
		rawURL, err := href(link)
		if err != nil {
			return nil, err
		}
		top, err := topArticle(strippedText(title), rawURL, i+1)
		if err != nil {
			return nil, err
		}
		result = append(result, top)
	}
	return result, nil
}

// MainArticle prefers the breaking-news card the site uses for exceptional
// events and falls back to the regular lead card.
func (f franceTVInfo) MainArticle(doc *goquery.Document) (entity.MainArticle, error) {
	main, err := f.card(doc, "article.card-article-actu-forte", ".card-article-actu-forte__title")
	if err == nil {
		return main, nil
	}
	return f.card(doc, "article.card-article-majeure", ".card-article-majeure__title")
}

func (franceTVInfo) card(doc *goquery.Document, cardSel, titleSel string) (entity.MainArticle, error) {
	main, err := selectUnique(doc.Selection, cardSel)
	if err != nil {
		return entity.MainArticle{}, err
	}
	title, err := selectUnique(main, titleSel)
	if err != nil {
		return entity.MainArticle{}, err
	}
	link, err := selectUnique(main, "a")
	if err != nil {
		return entity.MainArticle{}, err
	}
	rawURL, err := href(link)
	if err != nil {
		return entity.MainArticle{}, err
	}
	return mainArticle(strippedText(title), rawURL)
}
