package media

import (
	"github.com/PuerkitoBio/goquery"

	"media-observer/internal/domain/entity"
)

type leMonde struct{}

func (leMonde) TopArticles(doc *goquery.Document) ([]entity.TopArticle, error) {
	var result []entity.TopArticle
	for i, s := range doc.Find("div.top-article").EachIter() {
		link, err := selectFirst(s, "a")
		if err != nil {
			return nil, err
		}
		rawURL, err := href(link)
		if err != nil {
			return nil, err
		}
		top, err := topArticle(strippedText(s), rawURL, i+1)
		if err != nil {
			return nil, err
		}
		result = append(result, top)
	}
	return result, nil
}

func (leMonde) MainArticle(doc *goquery.Document) (entity.MainArticle, error) {
	main, err := selectUnique(doc.Selection, "div.article--main")
	if err != nil {
		return entity.MainArticle{}, err
	}
	title, err := selectUnique(main, "p.article__title-label")
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
