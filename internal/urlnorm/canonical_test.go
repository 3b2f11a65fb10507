package urlnorm

import "testing"

func TestCanonicalize_FullExample(t *testing.T) {
	t.Parallel()

	got := Canonicalize("http://www.Example.COM/blog/post/?utm_source=twitter&fbclid=abc&tag=news#comments")
	want := "https://example.com/blog/post?tag=news"
	if got != want {
		t.Fatalf("unexpected canonical url: got %q want %q", got, want)
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"http://www.Example.COM/blog/post/?utm_source=twitter&fbclid=abc&tag=news#comments",
		"https://example.com/",
		"https://news.example.org/a/b?z=1&a=2&a=1",
		"not a url at all",
		"",
		"ftp://files.example.com/feed.xml",
	}
	for _, input := range inputs {
		once := Canonicalize(input)
		twice := Canonicalize(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: first %q then %q", input, once, twice)
		}
	}
}

func TestCanonicalize_UnparsableReturnsInput(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"://bad", "relative/path", ""} {
		if got := Canonicalize(input); got != input {
			t.Fatalf("expected %q unchanged, got %q", input, got)
		}
	}
}

func TestCanonicalize_SchemeUpgradeOnlyHTTP(t *testing.T) {
	t.Parallel()

	if got := Canonicalize("http://example.com/a"); got != "https://example.com/a" {
		t.Fatalf("http should upgrade to https, got %q", got)
	}
	if got := Canonicalize("ftp://example.com/a"); got != "ftp://example.com/a" {
		t.Fatalf("non-http scheme should stay, got %q", got)
	}
}

func TestCanonicalize_WWWLabelIsLiteral(t *testing.T) {
	t.Parallel()

	if got := Canonicalize("https://www.example.com/a"); got != "https://example.com/a" {
		t.Fatalf("www. should be stripped, got %q", got)
	}
	if got := Canonicalize("https://www2.example.com/a"); got != "https://www2.example.com/a" {
		t.Fatalf("www2. must not be stripped, got %q", got)
	}
}

func TestCanonicalize_PathAndCasePreserved(t *testing.T) {
	t.Parallel()

	got := Canonicalize("https://Example.com/Blog/Post?Tag=News")
	want := "https://example.com/Blog/Post?Tag=News"
	if got != want {
		t.Fatalf("path/query case must be preserved: got %q want %q", got, want)
	}
}

func TestCanonicalize_TrailingSlash(t *testing.T) {
	t.Parallel()

	if got := Canonicalize("https://example.com/a/"); got != "https://example.com/a" {
		t.Fatalf("trailing slash should be trimmed, got %q", got)
	}
	if got := Canonicalize("https://example.com/"); got != "https://example.com/" {
		t.Fatalf("root path keeps its slash, got %q", got)
	}
}

func TestCanonicalize_QuerySortStableWithDuplicates(t *testing.T) {
	t.Parallel()

	got := Canonicalize("https://example.com/x?b=2&a=2&a=1")
	want := "https://example.com/x?a=2&a=1&b=2"
	if got != want {
		t.Fatalf("duplicate keys must keep value order under key sort: got %q want %q", got, want)
	}
}
