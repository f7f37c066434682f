package media

import (
	"github.com/PuerkitoBio/goquery"

	"media-observer/internal/domain/entity"
)

type bfmTV struct{}

func (bfmTV) TopArticles(doc *goquery.Document) ([]entity.TopArticle, error) {
	var result []entity.TopArticle
	for i, s := range doc.Find("section[id*='top_contenus'] li > a").EachIter() {
		title, err := selectUnique(s, "h3")
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

// MainArticle prefers the full-width breaking-news block over the regular
// lead block.
func (b bfmTV) MainArticle(doc *goquery.Document) (entity.MainArticle, error) {
	main, err := b.block(doc, ".megamax article.une_item")
	if err == nil {
		return main, nil
	}
	return b.block(doc, ".block_une article.une_item")
}

func (bfmTV) block(doc *goquery.Document, mainSel string) (entity.MainArticle, error) {
	main, err := selectUnique(doc.Selection, mainSel)
	if err != nil {
		return entity.MainArticle{}, err
	}
	title, err := selectUnique(main, "h2")
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
