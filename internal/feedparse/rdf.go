package feedparse

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// RSS 1.0 places items as siblings of the channel under the rdf:RDF root.
type rdfDocument struct {
	XMLName xml.Name   `xml:"RDF"`
	Channel rdfChannel `xml:"channel"`
	Items   []rdfItem  `xml:"item"`
}

type rdfChannel struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
}

type rdfItem struct {
	About       string `xml:"about,attr"` // rdf:about
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Date        string `xml:"date"`    // dc:date
	Creator     string `xml:"creator"` // dc:creator
}

func parseRDF(payload []byte) (*Document, error) {
	var raw rdfDocument
	if err := decodeXML(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode rdf: %w", err)
	}

	doc := &Document{
		Format:      FormatRDF,
		Title:       strings.TrimSpace(raw.Channel.Title),
		SiteURL:     strings.TrimSpace(raw.Channel.Link),
		Description: HTMLToText(raw.Channel.Description),
	}

	for idx, entry := range raw.Items {
		item, reason := convertRDFItem(entry)
		if reason != "" {
			doc.Skipped = append(doc.Skipped, SkippedItem{Index: idx, Reason: reason})
			continue
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}

func convertRDFItem(entry rdfItem) (Item, string) {
	item := Item{
		GUID:        firstNonEmpty(strings.TrimSpace(entry.About), strings.TrimSpace(entry.Link)),
		Title:       HTMLToText(entry.Title),
		Link:        strings.TrimSpace(entry.Link),
		Author:      strings.TrimSpace(entry.Creator),
		Summary:     HTMLToText(entry.Description),
		ContentText: HTMLToText(entry.Description),
		PublishedAt: ParseFeedTime(entry.Date),
	}

	if !item.usable() {
		return Item{}, "item has neither title nor link"
	}
	return item, ""
}
