package media

import (
	"github.com/PuerkitoBio/goquery"

	"media-observer/internal/domain/entity"
)

type cnews struct{}

func (cnews) TopArticles(doc *goquery.Document) ([]entity.TopArticle, error) {
	var result []entity.TopArticle
	for i, s := range doc.Find(".top-news-content a").EachIter() {
		title, err := selectUnique(s, "h3.dm-letop-title")
		if err != nil {
			return nil, err
		}
		rawURL, err := href(s)
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

func (cnews) MainArticle(doc *goquery.Document) (entity.MainArticle, error) {
	main, err := selectFirst(doc.Selection, "div.dm-block")
	if err != nil {
		return entity.MainArticle{}, err
	}
	title, err := selectUnique(main, "h2.dm-news-title")
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
