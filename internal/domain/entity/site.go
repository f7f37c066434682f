package entity

import "time"

// Collection describes one observed news source: its stable short name (the
// natural key in storage), the canonical URL the archive is queried with, the
// site's local time zone, and the tag selecting its front-page parser.
type Collection struct {
	Name     string
	URL      string
	TZ       *time.Location
	ParserID string
}

// Validate checks that the collection is fully described.
func (c Collection) Validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Message: "empty collection name"}
	}
	if err := (Article{URL: c.URL}).Validate(); err != nil {
		return err
	}
	if c.TZ == nil {
		return &ValidationError{Field: "tz", Message: "missing time zone"}
	}
	if c.ParserID == "" {
		return &ValidationError{Field: "parser", Message: "missing parser tag"}
	}
	return nil
}
