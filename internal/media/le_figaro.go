package media

import (
	"github.com/PuerkitoBio/goquery"

	"media-observer/internal/domain/entity"
)

type leFigaro struct{}

// TopArticles returns nothing: the site publishes no most-read list on its
// front page.
func (leFigaro) TopArticles(doc *goquery.Document) ([]entity.TopArticle, error) {
	return nil, nil
}

func (leFigaro) MainArticle(doc *goquery.Document) (entity.MainArticle, error) {
	main, err := selectFirst(doc.Selection, ".fig-main .fig-ensemble__first-article")
	if err != nil {
		return entity.MainArticle{}, err
	}
	title, err := selectUnique(main, ".fig-ensemble__title")
	if err != nil {
		return entity.MainArticle{}, err
	}
	link, err := selectFirst(main, "a")
	if err != nil {
		return entity.MainArticle{}, err
	}
	rawURL, err := href(link)
	if err != nil {
		return entity.MainArticle{}, err
	}
	return mainArticle(strippedText(title), rawURL)
}
