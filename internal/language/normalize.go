package language

import (
	"fmt"
	"strings"

	xlanguage "golang.org/x/text/language"
)

// Auto is the source language sentinel understood by translation providers.
const Auto = "auto"

// NormalizeTag normalizes a language tag to lowercase and "-" separators.
// Returns an empty string when the value is blank or contains invalid characters.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	parts := strings.Split(trimmed, "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isAlphaLower(part) {
			return ""
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 0 {
		return ""
	}
	return strings.Join(normalized, "-")
}

// NormalizeCode returns the primary language subtag (for example, "en" from "en-US").
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}

// Resolve validates raw as a BCP 47 tag and returns its ISO 639 base code.
// "auto" is passed through so callers can forward it to providers unchanged.
func Resolve(raw string) (string, error) {
	tag := NormalizeTag(raw)
	if tag == "" {
		return "", fmt.Errorf("language %q is not a valid tag", raw)
	}
	if tag == Auto {
		return Auto, nil
	}

	parsed, err := xlanguage.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("parse language %q: %w", raw, err)
	}
	base, confidence := parsed.Base()
	if confidence == xlanguage.No {
		return "", fmt.Errorf("language %q has no known base", raw)
	}
	return base.String(), nil
}

// IsAuto reports whether raw asks the provider to detect the source language.
func IsAuto(raw string) bool {
	tag := NormalizeTag(raw)
	return tag == "" || tag == Auto
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
