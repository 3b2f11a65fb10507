package features

import "testing"

func TestTokenize(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("The Quick, quick BROWN fox -- jumps over a lazy dog!")
	want := []string{"quick", "quick", "brown", "fox", "jumps", "lazy", "dog"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected token count: got %v want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("unexpected token at %d: got %q want %q", i, tokens[i], want[i])
		}
	}
}

func TestTokenize_NonASCIIStripped(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("Café naïve ☕ review")
	want := []string{"caf", "na", "ve", "review"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens: got %v want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("unexpected token at %d: got %q want %q", i, tokens[i], want[i])
		}
	}
}

func TestTokenize_KeepsTwoCharTokens(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("go ai x v8")
	want := []string{"go", "ai", "v8"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected tokens: got %v want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("unexpected token at %d: got %q want %q", i, tokens[i], want[i])
		}
	}
}

func TestTokenize_Empty(t *testing.T) {
	t.Parallel()

	if got := Tokenize(""); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
	if got := Tokenize("a an to of!!"); len(got) != 0 {
		t.Fatalf("expected short tokens dropped, got %v", got)
	}
}

func TestSimhash_EmptyIsZero(t *testing.T) {
	t.Parallel()

	if got := Simhash(nil); got != 0 {
		t.Fatalf("empty token set must hash to 0, got %d", got)
	}
}

func TestSimhash_Deterministic(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("central bank raises interest rates again amid inflation fears")
	first := Simhash(tokens)
	second := Simhash(tokens)
	if first != second {
		t.Fatalf("simhash is not deterministic: %d vs %d", first, second)
	}
	if first == 0 {
		t.Fatalf("non-empty token set should not hash to 0")
	}
}

func TestHammingDistance(t *testing.T) {
	t.Parallel()

	if got := HammingDistance(0, 0); got != 0 {
		t.Fatalf("identical fingerprints: got %d want 0", got)
	}
	if got := HammingDistance(0, ^uint64(0)); got != 64 {
		t.Fatalf("opposite fingerprints: got %d want 64", got)
	}
	a, b := uint64(0b1010), uint64(0b0110)
	if HammingDistance(a, b) != HammingDistance(b, a) {
		t.Fatalf("hamming distance must be symmetric")
	}
}

func TestHammingDistance_RewordedVsUnrelated(t *testing.T) {
	t.Parallel()

	original := Simhash(Tokenize("Central bank raises interest rates amid persistent inflation pressure"))
	reworded := Simhash(Tokenize("Central bank raises interest rates as inflation pressure persists"))
	unrelated := Simhash(Tokenize("Local football club wins championship final in dramatic penalty shootout"))

	near := HammingDistance(original, reworded)
	far := HammingDistance(original, unrelated)
	if near >= far {
		t.Fatalf("reworded headline should be closer than unrelated: near=%d far=%d", near, far)
	}
}

func TestJaccardSimilarity_Conventions(t *testing.T) {
	t.Parallel()

	if got := JaccardSimilarity(nil, nil); got != 1.0 {
		t.Fatalf("two empty sets: got %v want 1.0", got)
	}
	if got := JaccardSimilarity([]string{"a"}, nil); got != 0.0 {
		t.Fatalf("one empty set: got %v want 0.0", got)
	}
	if got := JaccardSimilarity([]string{"rates", "bank"}, []string{"bank", "rates"}); got != 1.0 {
		t.Fatalf("identical sets: got %v want 1.0", got)
	}
	if got := JaccardSimilarity([]string{"bank", "bank", "rates"}, []string{"bank", "rates"}); got != 1.0 {
		t.Fatalf("duplicates must not change set similarity: got %v want 1.0", got)
	}
}

func TestJaccardSimilarity_PartialOverlap(t *testing.T) {
	t.Parallel()

	a := []string{"bank", "rates", "inflation"}
	b := []string{"bank", "rates", "football"}
	got := JaccardSimilarity(a, b)
	want := 2.0 / 4.0
	if got != want {
		t.Fatalf("unexpected jaccard: got %v want %v", got, want)
	}
	if got != JaccardSimilarity(b, a) {
		t.Fatalf("jaccard must be symmetric")
	}
}
