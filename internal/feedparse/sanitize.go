package feedparse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// HTMLToText strips all markup and collapses whitespace. Feed descriptions
// and content blocks routinely arrive as HTML fragments.
func HTMLToText(html string) string {
	stripped := strictPolicy.Sanitize(html)
	return strings.Join(strings.Fields(stripped), " ")
}

// FirstImageURL pulls the first usable <img src> out of an HTML fragment.
// Returns "" when the fragment has no image or does not parse.
func FirstImageURL(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			return true
		}
		found = src
		return false
	})
	return found
}
