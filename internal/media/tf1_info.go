package media

import (
	"github.com/PuerkitoBio/goquery"

	"media-observer/internal/domain/entity"
)

type tf1Info struct{}

func (tf1Info) TopArticles(doc *goquery.Document) ([]entity.TopArticle, error) {
	var result []entity.TopArticle
	for i, s := range doc.Find("#AllNews__List__0 .AllNewsItem .LinkArticle").EachIter() {
		link, err := selectUnique(s, "a")
		if err != nil {
			return nil, err
		}
		rawURL, err := href(link)
		if err != nil {
			return nil, err
		}
		top, err := topArticle(strippedText(link), rawURL, i+1)
		if err != nil {
			return nil, err
		}
		result = append(result, top)
	}
	return result, nil
}

func (tf1Info) MainArticle(doc *goquery.Document) (entity.MainArticle, error) {
	main, err := selectFirst(doc.Selection, "#headlineid .ArticleCard__Title")
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
	return mainArticle(strippedText(link), rawURL)
}
