package pipeline

import (
	"testing"
	"time"

	"github.com/CodesWhat/rss-wrangler-sub003/internal/db"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/features"
	"github.com/CodesWhat/rss-wrangler-sub003/internal/feedparse"
)

func TestBestClusterMatch_RequiresBothSignals(t *testing.T) {
	t.Parallel()

	title := "Central bank raises interest rates amid inflation fears"
	item := StoredItem{
		Title:       title,
		TitleTokens: features.Tokenize(title),
		Simhash:     features.Simhash(features.Tokenize(title)),
	}

	sameStory := clusterCandidate{
		ClusterID: 1,
		Title:     "Central bank raises interest rates as inflation fears persist",
		Simhash:   item.Simhash ^ 0x21, // 2 bits away
	}

	// Fingerprint-close but with disjoint title tokens: Jaccard must veto.
	closeHashOnly := clusterCandidate{
		ClusterID: 2,
		Title:     "Completely different football match report",
		Simhash:   item.Simhash ^ 0x3, // 2 bits away
	}

	match := bestClusterMatch(item, []clusterCandidate{closeHashOnly, sameStory}, DefaultMaxHamming, DefaultMinJaccard)
	if match == nil {
		t.Fatalf("expected a match for the reworded headline")
	}
	if match.ClusterID != 1 {
		t.Fatalf("expected cluster 1, got %d (jaccard gate failed)", match.ClusterID)
	}
}

func TestBestClusterMatch_NoMatchStartsNewCluster(t *testing.T) {
	t.Parallel()

	title := "Central bank raises interest rates amid inflation fears"
	item := StoredItem{
		TitleTokens: features.Tokenize(title),
		Simhash:     features.Simhash(features.Tokenize(title)),
	}
	unrelated := clusterCandidate{
		ClusterID: 7,
		Title:     "Local football club wins championship final",
	}
	unrelated.Simhash = features.Simhash(features.Tokenize(unrelated.Title))

	if match := bestClusterMatch(item, []clusterCandidate{unrelated}, DefaultMaxHamming, DefaultMinJaccard); match != nil {
		t.Fatalf("unrelated candidate should not match, got cluster %d", match.ClusterID)
	}
}

func TestBestClusterMatch_TiebreakPrefersCloserThenOverlap(t *testing.T) {
	t.Parallel()

	item := StoredItem{
		TitleTokens: []string{"alpha", "beta", "gamma"},
		Simhash:     0b1111,
	}
	candidates := []clusterCandidate{
		{ClusterID: 1, Title: "alpha beta gamma delta", Simhash: 0b1111 ^ 0b11},   // distance 2
		{ClusterID: 2, Title: "alpha beta gamma", Simhash: 0b1111 ^ 0b1},          // distance 1, full overlap
		{ClusterID: 3, Title: "alpha beta gamma epsilon", Simhash: 0b1111 ^ 0b10}, // distance 1, partial overlap
	}

	match := bestClusterMatch(item, candidates, DefaultMaxHamming, DefaultMinJaccard)
	if match == nil || match.ClusterID != 2 {
		t.Fatalf("expected cluster 2 to win the tiebreak, got %+v", match)
	}
}

func TestPrepareItem(t *testing.T) {
	t.Parallel()

	svc := &Service{opts: Options{}.withDefaults()}
	published := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	entry := feedparse.Item{
		GUID:        " urn:item:5 ",
		Title:       "  Rates rise again  ",
		Link:        "http://www.Example.com/rates/?utm_source=x",
		Author:      "Jo Reporter",
		Summary:     "The bank raised rates.",
		ContentText: "The central bank raised interest rates for the third time.",
		PublishedAt: &published,
	}
	source := db.PollableSource{SourceID: 3, TenantID: 9}
	fetchedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	item := svc.prepareItem(source, entry, fetchedAt)
	if item.TenantID != 9 || item.SourceID != 3 {
		t.Fatalf("unexpected ownership: tenant=%d source=%d", item.TenantID, item.SourceID)
	}
	if item.GUID == nil || *item.GUID != "urn:item:5" {
		t.Fatalf("unexpected guid: %v", item.GUID)
	}
	if item.CanonicalURL != "https://example.com/rates" {
		t.Fatalf("unexpected canonical url: %q", item.CanonicalURL)
	}
	if item.Title != "Rates rise again" {
		t.Fatalf("unexpected title: %q", item.Title)
	}
	if item.Simhash == 0 {
		t.Fatalf("expected a non-zero fingerprint")
	}
	if item.TokenCount == 0 {
		t.Fatalf("expected token count > 0")
	}
	if len(item.TitleTokens) == 0 {
		t.Fatalf("expected title tokens")
	}
	if item.PublishedAt == nil || !item.PublishedAt.Equal(published) {
		t.Fatalf("unexpected published at: %v", item.PublishedAt)
	}
}

func TestPrepareItem_EmptyContentHashesToZero(t *testing.T) {
	t.Parallel()

	svc := &Service{opts: Options{}.withDefaults()}
	item := svc.prepareItem(db.PollableSource{}, feedparse.Item{Link: "https://example.com/x"}, time.Now().UTC())
	if item.Simhash != 0 {
		t.Fatalf("empty text must fingerprint to 0, got %d", item.Simhash)
	}
	if item.TokenCount != 0 {
		t.Fatalf("expected zero tokens, got %d", item.TokenCount)
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	t.Parallel()

	opts := Options{}.withDefaults()
	if opts.Workers != 8 || opts.MaxHamming != DefaultMaxHamming || opts.MinJaccard != DefaultMinJaccard {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	custom := Options{Workers: 2, MaxHamming: 6, MinJaccard: 0.7}.withDefaults()
	if custom.Workers != 2 || custom.MaxHamming != 6 || custom.MinJaccard != 0.7 {
		t.Fatalf("explicit values must survive: %+v", custom)
	}
}
