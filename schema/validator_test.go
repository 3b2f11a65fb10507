package subscriptionschema

import (
	"encoding/json"
	"testing"
)

func TestValidateSourceSubscription_Valid(t *testing.T) {
	t.Parallel()

	payload := json.RawMessage(`{
		"tenant": "newsroom",
		"feed_url": "https://news.example.com/rss.xml",
		"title": "Example News",
		"weight": "prefer",
		"folder": "tech"
	}`)

	sub, err := ValidateSourceSubscription(payload)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if sub.Tenant != "newsroom" {
		t.Fatalf("unexpected tenant: %q", sub.Tenant)
	}
	if sub.Weight == nil || *sub.Weight != "prefer" {
		t.Fatalf("unexpected weight: %v", sub.Weight)
	}
	if sub.Folder == nil || *sub.Folder != "tech" {
		t.Fatalf("unexpected folder: %v", sub.Folder)
	}
}

func TestValidateSourceSubscription_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		payload string
	}{
		{"empty", ``},
		{"missing feed_url", `{"tenant": "newsroom"}`},
		{"bad tenant slug", `{"tenant": "News Room!", "feed_url": "https://x.example.com/rss"}`},
		{"ftp scheme", `{"tenant": "newsroom", "feed_url": "ftp://x.example.com/rss"}`},
		{"unknown field", `{"tenant": "newsroom", "feed_url": "https://x.example.com/rss", "surprise": true}`},
		{"trailing content", `{"tenant": "newsroom", "feed_url": "https://x.example.com/rss"} {}`},
		{"unknown weight name", `{"tenant": "newsroom", "feed_url": "https://x.example.com/rss", "weight": "favourite"}`},
		{"numeric weight", `{"tenant": "newsroom", "feed_url": "https://x.example.com/rss", "weight": 3}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ValidateSourceSubscription(json.RawMessage(tc.payload)); err == nil {
				t.Fatalf("expected rejection for %s", tc.name)
			}
		})
	}
}
