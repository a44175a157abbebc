package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"horse.fit/pagetrans/internal/language"
)

// minLetters is the smallest sample lingua is asked to classify.
const minLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// Detector reports the ISO 639-1 code of a text sample, or "" when unsure.
type Detector interface {
	DetectISO6391(text string) string
}

// Lingua is the process-wide lingua-go detector.
type Lingua struct{}

func (Lingua) DetectISO6391(text string) string {
	return DetectISO6391(text)
}

func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if letterCount(sample) < minLetters {
		return ""
	}

	detected, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// AlreadyInTarget reports whether d is confident text is already written in
// targetLang. Undetected samples are never skipped.
func AlreadyInTarget(d Detector, text, targetLang string) bool {
	if d == nil {
		return false
	}
	target := language.NormalizeCode(targetLang)
	if target == "" {
		return false
	}
	return d.DetectISO6391(text) == target
}

func letterCount(sample string) int {
	count := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
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
