package feedparse

import (
	"errors"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Example News</title>
    <link>https://news.example.com</link>
    <description>All the &lt;b&gt;news&lt;/b&gt;</description>
    <item>
      <title>Rates rise again</title>
      <link>https://news.example.com/rates</link>
      <guid isPermaLink="false">urn:item:1</guid>
      <description>&lt;p&gt;The central bank &lt;em&gt;raised&lt;/em&gt; rates.&lt;/p&gt;</description>
      <content:encoded>&lt;p&gt;Full text with &lt;img src="https://cdn.example.com/a.jpg"/&gt; inline.&lt;/p&gt;</content:encoded>
      <dc:creator>Jo Reporter</dc:creator>
      <pubDate>Mon, 02 Mar 2026 10:30:00 +0000</pubDate>
    </item>
    <item>
      <description>orphan body with no title or link</description>
    </item>
    <item>
      <title>Second story</title>
      <link>https://news.example.com/second</link>
      <pubDate>not a date</pubDate>
    </item>
  </channel>
</rss>`

func TestParse_RSS(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleRSS), "")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if doc.Format != FormatRSS {
		t.Fatalf("unexpected format: got %q want %q", doc.Format, FormatRSS)
	}
	if doc.Title != "Example News" {
		t.Fatalf("unexpected title: %q", doc.Title)
	}
	if len(doc.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(doc.Items))
	}
	if len(doc.Skipped) != 1 {
		t.Fatalf("expected 1 skipped item, got %d", len(doc.Skipped))
	}
	if doc.Skipped[0].Index != 1 {
		t.Fatalf("unexpected skipped index: %d", doc.Skipped[0].Index)
	}

	first := doc.Items[0]
	if first.GUID != "urn:item:1" {
		t.Fatalf("unexpected guid: %q", first.GUID)
	}
	if first.Author != "Jo Reporter" {
		t.Fatalf("unexpected author: %q", first.Author)
	}
	if first.Summary != "The central bank raised rates." {
		t.Fatalf("unexpected summary: %q", first.Summary)
	}
	if first.ImageURL != "https://cdn.example.com/a.jpg" {
		t.Fatalf("unexpected image url: %q", first.ImageURL)
	}
	want := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	if first.PublishedAt == nil || !first.PublishedAt.Equal(want) {
		t.Fatalf("unexpected published at: %v", first.PublishedAt)
	}

	// Unparseable date degrades to nil instead of skipping the item.
	if doc.Items[1].PublishedAt != nil {
		t.Fatalf("expected nil published at for bad date, got %v", doc.Items[1].PublishedAt)
	}
}

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Blog</title>
  <link rel="self" href="https://blog.example.com/feed.atom"/>
  <link rel="alternate" href="https://blog.example.com"/>
  <entry>
    <id>tag:blog.example.com,2026:entry-9</id>
    <title type="html">&lt;b&gt;Big&lt;/b&gt; launch</title>
    <link rel="alternate" href="https://blog.example.com/launch"/>
    <summary>We shipped.</summary>
    <content type="html">&lt;p&gt;Launch day notes.&lt;/p&gt;</content>
    <author><name>Sam Writer</name></author>
    <published>2026-03-02T09:00:00Z</published>
  </entry>
</feed>`

func TestParse_Atom(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleAtom), "")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if doc.Format != FormatAtom {
		t.Fatalf("unexpected format: %q", doc.Format)
	}
	if doc.SiteURL != "https://blog.example.com" {
		t.Fatalf("unexpected site url: %q", doc.SiteURL)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(doc.Items))
	}
	entry := doc.Items[0]
	if entry.Title != "Big launch" {
		t.Fatalf("unexpected title: %q", entry.Title)
	}
	if entry.Link != "https://blog.example.com/launch" {
		t.Fatalf("unexpected link: %q", entry.Link)
	}
	if entry.ContentText != "Launch day notes." {
		t.Fatalf("unexpected content: %q", entry.ContentText)
	}
	if entry.Author != "Sam Writer" {
		t.Fatalf("unexpected author: %q", entry.Author)
	}
}

const sampleJSONFeed = `{
  "version": "https://jsonfeed.org/version/1.1",
  "title": "Example Podcast Notes",
  "home_page_url": "https://pod.example.com",
  "items": [
    {
      "id": "ep-42",
      "url": "https://pod.example.com/ep-42",
      "title": "Episode 42",
      "content_html": "<p>Show notes with <img src=\"https://pod.example.com/cover.png\"> art.</p>",
      "date_published": "2026-03-01T18:00:00Z",
      "authors": [{"name": "Host"}]
    },
    {
      "id": "broken"
    }
  ]
}`

func TestParse_JSONFeed(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleJSONFeed), "")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if doc.Format != FormatJSONFeed {
		t.Fatalf("unexpected format: %q", doc.Format)
	}
	if len(doc.Items) != 1 || len(doc.Skipped) != 1 {
		t.Fatalf("expected 1 item and 1 skipped, got %d and %d", len(doc.Items), len(doc.Skipped))
	}
	item := doc.Items[0]
	if item.ContentText != "Show notes with art." {
		t.Fatalf("unexpected content text: %q", item.ContentText)
	}
	if item.ImageURL != "https://pod.example.com/cover.png" {
		t.Fatalf("unexpected image url: %q", item.ImageURL)
	}
	if item.Author != "Host" {
		t.Fatalf("unexpected author: %q", item.Author)
	}
}

const sampleRDF = `<?xml version="1.0" encoding="UTF-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://purl.org/rss/1.0/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel rdf:about="https://old.example.com">
    <title>Legacy Feed</title>
    <link>https://old.example.com</link>
    <description>RSS 1.0 holdout</description>
  </channel>
  <item rdf:about="https://old.example.com/one">
    <title>Still publishing</title>
    <link>https://old.example.com/one</link>
    <description>Old but alive.</description>
    <dc:date>2026-02-28T12:00:00Z</dc:date>
    <dc:creator>Archivist</dc:creator>
  </item>
</rdf:RDF>`

func TestParse_RDF(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(sampleRDF), "")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if doc.Format != FormatRDF {
		t.Fatalf("unexpected format: %q", doc.Format)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(doc.Items))
	}
	if doc.Items[0].GUID != "https://old.example.com/one" {
		t.Fatalf("unexpected guid: %q", doc.Items[0].GUID)
	}
	if doc.Items[0].Author != "Archivist" {
		t.Fatalf("unexpected author: %q", doc.Items[0].Author)
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
		want    Format
	}{
		{"rss", sampleRSS, FormatRSS},
		{"atom", sampleAtom, FormatAtom},
		{"jsonfeed", sampleJSONFeed, FormatJSONFeed},
		{"rdf", sampleRDF, FormatRDF},
		{"bom prefix", "\xEF\xBB\xBF" + sampleRSS, FormatRSS},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := DetectFormat([]byte(tc.payload))
			if err != nil {
				t.Fatalf("unexpected detect error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected format: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestDetectFormat_Unknown(t *testing.T) {
	t.Parallel()

	for _, payload := range []string{"", "<html><body>not a feed</body></html>", "plain text"} {
		_, err := DetectFormat([]byte(payload))
		if !errors.Is(err, ErrUnknownFormat) {
			t.Fatalf("expected ErrUnknownFormat for %q, got %v", payload, err)
		}
	}
}

func TestParse_RSSMediaThumbnailImage(t *testing.T) {
	t.Parallel()

	payload := `<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/"><channel><title>T</title>
<item><title>Thumb only</title><link>https://news.example.com/thumb</link>
<media:thumbnail url="https://cdn.example.com/thumb.jpg"/>
<description>&lt;p&gt;no inline image&lt;/p&gt;</description></item>
</channel></rss>`

	doc, err := Parse([]byte(payload), "")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(doc.Items))
	}
	if doc.Items[0].ImageURL != "https://cdn.example.com/thumb.jpg" {
		t.Fatalf("media:thumbnail should supply the image, got %q", doc.Items[0].ImageURL)
	}
}

func TestParse_ContentTypeHintIsAdvisory(t *testing.T) {
	t.Parallel()

	// Sniffing decides when it can: an RSS payload served with a JSON
	// content-type still parses as RSS.
	doc, err := Parse([]byte(sampleRSS), "application/feed+json")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if doc.Format != FormatRSS {
		t.Fatalf("hint must not override sniffing: got %q", doc.Format)
	}

	// When sniffing fails the hint routes the payload to a converter.
	_, err = Parse([]byte("plain text"), "")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat without a hint, got %v", err)
	}
	_, err = Parse([]byte("plain text"), "application/rss+xml")
	if errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("hint should have routed the payload to the rss converter, got %v", err)
	}
}

func TestFormatJSONFeedValue(t *testing.T) {
	t.Parallel()

	if FormatJSONFeed != "json" {
		t.Fatalf("unexpected json feed format tag: %q", FormatJSONFeed)
	}
}

func TestParse_PermalinkGUIDFillsMissingLink(t *testing.T) {
	t.Parallel()

	payload := `<rss version="2.0"><channel><title>T</title>
<item><title>No link elem</title><guid>https://news.example.com/via-guid</guid></item>
</channel></rss>`

	doc, err := Parse([]byte(payload), "")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(doc.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(doc.Items))
	}
	if doc.Items[0].Link != "https://news.example.com/via-guid" {
		t.Fatalf("permalink guid should fill the link, got %q", doc.Items[0].Link)
	}
}
