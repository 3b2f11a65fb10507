// Package langdetect tags stored items with an ISO 639-1 language code so
// per-tenant views can filter by language. Detection is best-effort; short or
// ambiguous text stays "und".
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// Undetermined is stored when no language could be established.
const Undetermined = "und"

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Detect returns the two-letter language code for an item, preferring its
// body text and falling back to the title. Returns Undetermined when both
// samples are too short or inconclusive.
func Detect(title, body string) string {
	if code := detectISO6391(body); code != "" {
		return code
	}
	if code := detectISO6391(title); code != "" {
		return code
	}
	return Undetermined
}

func detectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < 6 {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
