package feedparse

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// The explicit layouts cover the formats RSS and Atom actually mandate;
// dateparse mops up the long tail of almost-right timestamps seen in the
// wild.
var explicitDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseFeedTime parses a feed timestamp into UTC. Returns nil rather than an
// error: an unparseable date degrades the item, it does not skip it.
func ParseFeedTime(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	for _, layout := range explicitDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}

	if parsed, err := dateparse.ParseAny(trimmed); err == nil {
		utc := parsed.UTC()
		return &utc
	}
	return nil
}
