// Package features computes the near-duplicate signals used by clustering:
// token sets, 64-bit simhash fingerprints, Hamming distance, and Jaccard
// similarity. Everything here is pure and deterministic.
package features

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

var stopwords = map[string]struct{}{
	"an": {}, "as": {}, "at": {}, "be": {}, "by": {}, "do": {}, "he": {},
	"if": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"so": {}, "to": {}, "up": {}, "we": {},
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "has": {}, "have": {}, "had": {},
	"will": {}, "not": {}, "but": {}, "its": {}, "his": {}, "her": {},
	"you": {}, "your": {}, "how": {}, "why": {}, "what": {}, "when": {},
	"who": {}, "out": {}, "into": {}, "over": {}, "after": {}, "about": {},
	"more": {}, "new": {}, "can": {}, "all": {}, "one": {}, "two": {},
	"says": {}, "said": {},
}

// Tokenize lowercases the input, replaces every character outside [a-z0-9]
// with a space (accented and non-Latin letters are dropped, not
// transliterated), splits on whitespace, and removes stopwords and
// single-character tokens. Duplicates survive so repeated words keep their
// fingerprint vote weight; Jaccard applies set semantics on its own.
func Tokenize(text string) []string {
	var scrubbed strings.Builder
	scrubbed.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			scrubbed.WriteRune(r)
		} else {
			scrubbed.WriteByte(' ')
		}
	}

	fields := strings.Fields(scrubbed.String())
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) < 2 {
			continue
		}
		if _, skip := stopwords[field]; skip {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// Simhash collapses a token set into a 64-bit fingerprint: each token votes
// +1 or -1 on every bit position according to its FNV-1a hash, and the sign
// of each column decides the output bit. No tokens means a zero fingerprint.
func Simhash(tokens []string) uint64 {
	if len(tokens) == 0 {
		return 0
	}

	var bitWeights [64]int
	for _, token := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		for bit := 0; bit < 64; bit++ {
			if sum&(1<<uint(bit)) != 0 {
				bitWeights[bit]++
			} else {
				bitWeights[bit]--
			}
		}
	}

	var fingerprint uint64
	for bit := 0; bit < 64; bit++ {
		if bitWeights[bit] > 0 {
			fingerprint |= 1 << uint(bit)
		}
	}
	return fingerprint
}

// HammingDistance counts differing bit positions between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// JaccardSimilarity is |A∩B| / |A∪B| over token sets. Two empty sets are
// identical (1.0); one empty set shares nothing (0.0).
func JaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, token := range a {
		setA[token] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, token := range b {
		setB[token] = struct{}{}
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}
