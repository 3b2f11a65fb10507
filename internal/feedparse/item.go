// Package feedparse turns fetched feed bytes into a normalized document. The
// four wire formats (RSS 2.0, Atom, JSON Feed, RDF/RSS 1.0) are detected by
// sniffing the payload and decoded by format-specific converters into one
// shared shape.
package feedparse

import "time"

// Format tags which wire format a document was decoded from.
type Format string

const (
	FormatRSS      Format = "rss"
	FormatAtom     Format = "atom"
	FormatJSONFeed Format = "json"
	FormatRDF      Format = "rdf"
)

// Document is the normalized result of parsing one feed payload.
type Document struct {
	Format      Format
	Title       string
	SiteURL     string
	Description string
	Items       []Item
	Skipped     []SkippedItem
}

// Item is one normalized entry. PublishedAt is nil when the feed carried no
// parseable date; identity handling downstream copes with that.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Author      string
	Summary     string
	ContentText string
	ImageURL    string
	PublishedAt *time.Time
}

// SkippedItem records an entry the converter dropped. A malformed entry never
// fails the whole document.
type SkippedItem struct {
	Index  int
	Reason string
}

// usable reports whether an entry carries enough to be stored at all.
func (i Item) usable() bool {
	return i.Title != "" || i.Link != ""
}
