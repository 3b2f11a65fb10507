package httpapi

import (
	"testing"
)

func TestParseReadMarkers_PartialUpdate(t *testing.T) {
	t.Parallel()

	markers, err := parseReadMarkers([]byte(`{"saved": true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if markers.Saved == nil || !*markers.Saved {
		t.Fatalf("expected saved=true, got %v", markers.Saved)
	}
	if markers.Read != nil || markers.NotInterested != nil {
		t.Fatalf("absent fields must stay nil so stored values are kept: %+v", markers)
	}
}

func TestParseReadMarkers_ClearingAMarker(t *testing.T) {
	t.Parallel()

	markers, err := parseReadMarkers([]byte(`{"read": false, "not_interested": true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if markers.Read == nil || *markers.Read {
		t.Fatalf("expected read=false, got %v", markers.Read)
	}
	if markers.NotInterested == nil || !*markers.NotInterested {
		t.Fatalf("expected not_interested=true, got %v", markers.NotInterested)
	}
}

func TestParseReadMarkers_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"not json", `read=true`},
		{"wrong type", `{"read": "yes"}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := parseReadMarkers([]byte(tc.body)); err == nil {
				t.Fatalf("expected rejection for %s", tc.name)
			}
		})
	}
}
