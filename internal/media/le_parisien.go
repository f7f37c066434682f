package media

import (
	"github.com/PuerkitoBio/goquery"

	"media-observer/internal/domain/entity"
)

type leParisien struct{}

func (leParisien) TopArticles(doc *goquery.Document) ([]entity.TopArticle, error) {
	var result []entity.TopArticle
	for i, s := range doc.Find("a[data-block-name='Les_plus_lus']").EachIter() {
		rawURL, err := href(s)
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

func (leParisien) MainArticle(doc *goquery.Document) (entity.MainArticle, error) {
	main, err := selectFirst(doc.Selection, ".homepage__top article")
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
	return mainArticle(strippedText(link), rawURL)
}
