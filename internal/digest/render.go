package digest

import (
	"fmt"
	"strings"
)

// Section names, in presentation order.
const (
	SectionTopPicks   = "top_picks"
	SectionBigStories = "big_stories"
	SectionQuickScan  = "quick_scan"
)

const (
	topPicksSize   = 5
	bigStoriesSize = 5

	oneLinerMaxChars = 120
)

var sectionHeadings = map[string]string{
	SectionTopPicks:   "Top Picks",
	SectionBigStories: "Big Stories",
	SectionQuickScan:  "Quick Scan",
}

// Entry is one cluster placed in the digest.
type Entry struct {
	ClusterID int64
	Section   string
	Rank      int
	Title     string
	URL       string
	OneLiner  string
	Sources   int
}

// splitSections deals ranked candidates into the fixed layout: the first
// five are top picks, the next five big stories, everything else quick scan.
func splitSections(candidates []candidate) []Entry {
	entries := make([]Entry, 0, len(candidates))
	for i, c := range candidates {
		section := SectionQuickScan
		switch {
		case i < topPicksSize:
			section = SectionTopPicks
		case i < topPicksSize+bigStoriesSize:
			section = SectionBigStories
		}
		entries = append(entries, Entry{
			ClusterID: c.ClusterID,
			Section:   section,
			Rank:      i + 1,
			Title:     c.Title,
			URL:       c.URL,
			OneLiner:  oneLiner(c),
			Sources:   c.MemberCount,
		})
	}
	return entries
}

// oneLiner condenses a cluster to at most 120 characters, ellipsis included.
func oneLiner(c candidate) string {
	text := strings.Join(strings.Fields(c.Summary), " ")
	if text == "" {
		text = strings.Join(strings.Fields(c.Title), " ")
	}

	runes := []rune(text)
	if len(runes) <= oneLinerMaxChars {
		return text
	}
	clipped := strings.TrimSpace(string(runes[:oneLinerMaxChars-3]))
	return clipped + "..."
}

// renderMarkdown lays the digest out section by section. Sections with no
// entries are omitted entirely.
func renderMarkdown(entries []Entry) string {
	var b strings.Builder

	for _, section := range []string{SectionTopPicks, SectionBigStories, SectionQuickScan} {
		var lines []string
		for _, entry := range entries {
			if entry.Section != section {
				continue
			}
			line := fmt.Sprintf("- **%s**", entry.Title)
			if entry.URL != "" {
				line = fmt.Sprintf("- **[%s](%s)**", entry.Title, entry.URL)
			}
			if entry.Sources > 1 {
				line += fmt.Sprintf(" (%d sources)", entry.Sources)
			}
			if entry.OneLiner != "" && entry.OneLiner != entry.Title {
				line += ": " + entry.OneLiner
			}
			lines = append(lines, line)
		}
		if len(lines) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("## " + sectionHeadings[section] + "\n\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}

	return b.String()
}
