package feedparse

import (
	"encoding/xml"
	"fmt"
	"strings"
)

type atomDocument struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Links   []atomLink  `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

type atomEntry struct {
	ID        string     `xml:"id"`
	Title     atomText   `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   atomText   `xml:"summary"`
	Content   atomText   `xml:"content"`
	Author    atomAuthor `xml:"author"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomText struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
	Inner string `xml:",innerxml"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// text resolves the Atom text-construct rules: xhtml content keeps its inner
// markup, everything else is the character data.
func (t atomText) text() string {
	if t.Type == "xhtml" {
		return t.Inner
	}
	return t.Value
}

func parseAtom(payload []byte) (*Document, error) {
	var raw atomDocument
	if err := decodeXML(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode atom: %w", err)
	}

	doc := &Document{
		Format:  FormatAtom,
		Title:   strings.TrimSpace(raw.Title),
		SiteURL: alternateLink(raw.Links),
	}

	for idx, entry := range raw.Entries {
		item, reason := convertAtomEntry(entry)
		if reason != "" {
			doc.Skipped = append(doc.Skipped, SkippedItem{Index: idx, Reason: reason})
			continue
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}

func convertAtomEntry(entry atomEntry) (Item, string) {
	content := entry.Content.text()
	if strings.TrimSpace(content) == "" {
		content = entry.Summary.text()
	}

	item := Item{
		GUID:        strings.TrimSpace(entry.ID),
		Title:       HTMLToText(entry.Title.text()),
		Link:        alternateLink(entry.Links),
		Author:      strings.TrimSpace(entry.Author.Name),
		Summary:     HTMLToText(entry.Summary.text()),
		ContentText: HTMLToText(content),
		ImageURL:    FirstImageURL(content),
		PublishedAt: ParseFeedTime(firstNonEmpty(entry.Published, entry.Updated)),
	}

	if !item.usable() {
		return Item{}, "entry has neither title nor link"
	}
	return item, ""
}

// alternateLink prefers rel="alternate" (or no rel, which defaults to
// alternate) and falls back to the first link with an href.
func alternateLink(links []atomLink) string {
	for _, link := range links {
		if (link.Rel == "" || link.Rel == "alternate") && strings.TrimSpace(link.Href) != "" {
			return strings.TrimSpace(link.Href)
		}
	}
	for _, link := range links {
		if strings.TrimSpace(link.Href) != "" {
			return strings.TrimSpace(link.Href)
		}
	}
	return ""
}
