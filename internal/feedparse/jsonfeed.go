package feedparse

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsonFeedDocument struct {
	Version     string         `json:"version"`
	Title       string         `json:"title"`
	HomePageURL string         `json:"home_page_url"`
	Description string         `json:"description"`
	Items       []jsonFeedItem `json:"items"`
}

type jsonFeedItem struct {
	ID            string           `json:"id"`
	URL           string           `json:"url"`
	ExternalURL   string           `json:"external_url"`
	Title         string           `json:"title"`
	ContentHTML   string           `json:"content_html"`
	ContentText   string           `json:"content_text"`
	Summary       string           `json:"summary"`
	Image         string           `json:"image"`
	DatePublished string           `json:"date_published"`
	DateModified  string           `json:"date_modified"`
	Authors       []jsonFeedAuthor `json:"authors"`
	Author        *jsonFeedAuthor  `json:"author"` // spec 1.0 singular form
}

type jsonFeedAuthor struct {
	Name string `json:"name"`
}

func parseJSONFeed(payload []byte) (*Document, error) {
	var raw jsonFeedDocument
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode json feed: %w", err)
	}
	if !strings.HasPrefix(raw.Version, "https://jsonfeed.org/version/") {
		return nil, fmt.Errorf("unrecognized json feed version %q", raw.Version)
	}

	doc := &Document{
		Format:      FormatJSONFeed,
		Title:       strings.TrimSpace(raw.Title),
		SiteURL:     strings.TrimSpace(raw.HomePageURL),
		Description: strings.TrimSpace(raw.Description),
	}

	for idx, entry := range raw.Items {
		item, reason := convertJSONFeedItem(entry)
		if reason != "" {
			doc.Skipped = append(doc.Skipped, SkippedItem{Index: idx, Reason: reason})
			continue
		}
		doc.Items = append(doc.Items, item)
	}
	return doc, nil
}

func convertJSONFeedItem(entry jsonFeedItem) (Item, string) {
	content := entry.ContentText
	if strings.TrimSpace(content) == "" {
		content = HTMLToText(entry.ContentHTML)
	}

	item := Item{
		GUID:        strings.TrimSpace(entry.ID),
		Title:       strings.TrimSpace(entry.Title),
		Link:        firstNonEmpty(strings.TrimSpace(entry.URL), strings.TrimSpace(entry.ExternalURL)),
		Author:      jsonFeedAuthorName(entry),
		Summary:     strings.TrimSpace(entry.Summary),
		ContentText: strings.Join(strings.Fields(content), " "),
		ImageURL:    strings.TrimSpace(entry.Image),
		PublishedAt: ParseFeedTime(firstNonEmpty(entry.DatePublished, entry.DateModified)),
	}
	if item.ImageURL == "" {
		item.ImageURL = FirstImageURL(entry.ContentHTML)
	}

	if !item.usable() {
		return Item{}, "item has neither title nor url"
	}
	return item, ""
}

func jsonFeedAuthorName(entry jsonFeedItem) string {
	for _, author := range entry.Authors {
		if name := strings.TrimSpace(author.Name); name != "" {
			return name
		}
	}
	if entry.Author != nil {
		return strings.TrimSpace(entry.Author.Name)
	}
	return ""
}
