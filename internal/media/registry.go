package media

import (
	"fmt"
	"time"

	"media-observer/internal/domain/entity"
)

// paris is the shared time zone of all currently observed sites.
var paris = mustLoadLocation("Europe/Paris")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %s: %v", name, err))
	}
	return loc
}

// collections lists every observed site, keyed by its stable short name. The
// parser tag doubles as the extractor registry key.
var collections = map[string]entity.Collection{
	"france_tv_info": {
		Name:     "france_tv_info",
		URL:      "https://francetvinfo.fr",
		TZ:       paris,
		ParserID: "france_tv_info",
	},
	"le_monde": {
		Name:     "le_monde",
		URL:      "https://lemonde.fr",
		TZ:       paris,
		ParserID: "le_monde",
	},
	"cnews": {
		Name:     "cnews",
		URL:      "https://cnews.fr",
		TZ:       paris,
		ParserID: "cnews",
	},
	"bfmtv": {
		Name:     "bfmtv",
		URL:      "https://bfmtv.com",
		TZ:       paris,
		ParserID: "bfmtv",
	},
	"le_parisien": {
		Name:     "le_parisien",
		URL:      "https://www.leparisien.fr/",
		TZ:       paris,
		ParserID: "le_parisien",
	},
	"le_figaro": {
		Name:     "le_figaro",
		URL:      "https://www.lefigaro.fr/",
		TZ:       paris,
		ParserID: "le_figaro",
	},
	"tf1_info": {
		Name:     "tf1_info",
		URL:      "https://www.tf1info.fr/",
		TZ:       paris,
		ParserID: "tf1_info",
	},
}

// extractors maps parser tags to their implementation.
var extractors = map[string]Extractor{
	"france_tv_info": franceTVInfo{},
	"le_monde":       leMonde{},
	"cnews":          cnews{},
	"bfmtv":          bfmTV{},
	"le_parisien":    leParisien{},
	"le_figaro":      leFigaro{},
	"tf1_info":       tf1Info{},
}

// Collections returns every observed collection.
func Collections() []entity.Collection {
	result := make([]entity.Collection, 0, len(collections))
	for _, c := range collections {
		result = append(result, c)
	}
	return result
}

// CollectionByName looks up one collection.
func CollectionByName(name string) (entity.Collection, error) {
	c, ok := collections[name]
	if !ok {
		return entity.Collection{}, fmt.Errorf("unknown collection %q: %w", name, entity.ErrNotFound)
	}
	return c, nil
}
