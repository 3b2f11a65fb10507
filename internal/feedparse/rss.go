package feedparse

import (
	"encoding/xml"
	"fmt"
	"strings"
)

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string       `xml:"title"`
	Link        string       `xml:"link"`
	GUID        rssGUID      `xml:"guid"`
	Description string       `xml:"description"`
	Encoded     string       `xml:"encoded"` // content:encoded
	Creator     string       `xml:"creator"` // dc:creator
	Author      string       `xml:"author"`
	PubDate     string       `xml:"pubDate"`
	Date        string       `xml:"date"` // dc:date
	Enclosure   rssEnclosure `xml:"enclosure"`
	Media       []rssMedia   `xml:"content"`   // media:content
	Thumbnails  []rssMedia   `xml:"thumbnail"` // media:thumbnail
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

type rssMedia struct {
	URL    string `xml:"url,attr"`
	Medium string `xml:"medium,attr"`
}

func parseRSS(payload []byte) (*Document, error) {
	var raw rssDocument
	if err := decodeXML(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode rss: %w", err)
	}

	doc := &Document{
		Format:      FormatRSS,
		Title:       strings.TrimSpace(raw.Channel.Title),
		SiteURL:     strings.TrimSpace(raw.Channel.Link),
		Description: HTMLToText(raw.Channel.Description),
	}

	for idx, entry := range raw.Channel.Items {
		item, reason := convertRSSItem(entry)
		if reason != "" {
			doc.Skipped = append(doc.Skipped, SkippedItem{Index: idx, Reason: reason})
			continue
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}

func convertRSSItem(entry rssItem) (Item, string) {
	contentHTML := entry.Encoded
	if strings.TrimSpace(contentHTML) == "" {
		contentHTML = entry.Description
	}

	item := Item{
		GUID:        strings.TrimSpace(entry.GUID.Value),
		Title:       HTMLToText(entry.Title),
		Link:        strings.TrimSpace(entry.Link),
		Author:      firstNonEmpty(strings.TrimSpace(entry.Creator), strings.TrimSpace(entry.Author)),
		Summary:     HTMLToText(entry.Description),
		ContentText: HTMLToText(contentHTML),
		PublishedAt: ParseFeedTime(firstNonEmpty(entry.PubDate, entry.Date)),
	}

	// A permalink guid doubles as the link when <link> is missing.
	if item.Link == "" && !strings.EqualFold(entry.GUID.IsPermaLink, "false") {
		if guid := item.GUID; strings.HasPrefix(guid, "http://") || strings.HasPrefix(guid, "https://") {
			item.Link = guid
		}
	}

	item.ImageURL = rssImageURL(entry, contentHTML)

	if !item.usable() {
		return Item{}, "item has neither title nor link"
	}
	return item, ""
}

// rssImageURL picks the hero image: media:content, then media:thumbnail,
// then an image enclosure, then the first <img> in the content HTML.
func rssImageURL(entry rssItem, contentHTML string) string {
	for _, media := range entry.Media {
		url := strings.TrimSpace(media.URL)
		if url == "" {
			continue
		}
		if media.Medium == "" || media.Medium == "image" {
			return url
		}
	}
	for _, thumb := range entry.Thumbnails {
		if url := strings.TrimSpace(thumb.URL); url != "" {
			return url
		}
	}
	if url := strings.TrimSpace(entry.Enclosure.URL); url != "" && strings.HasPrefix(entry.Enclosure.Type, "image/") {
		return url
	}
	return FirstImageURL(contentHTML)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
