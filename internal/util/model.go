package util

import (
	"regexp"
	"strings"
	"unicode"
)

var dateSuffix = regexp.MustCompile(`-\d{8}$`)

// DisplayModelName turns a model identifier into a short label:
// "claude-opus-4-6" -> "Opus 4.6", "claude-haiku-4-5-20251001" -> "Haiku 4.5".
// Identifiers without the claude- prefix are returned with the date suffix
// stripped and nothing else changed.
func DisplayModelName(modelName string) string {
	if modelName == "" {
		return "—"
	}

	name := dateSuffix.ReplaceAllString(modelName, "")
	if !strings.HasPrefix(name, "claude-") {
		return name
	}

	name = strings.TrimPrefix(name, "claude-")
	family, version, found := strings.Cut(name, "-")
	family = capitalize(family)
	if !found {
		return family
	}
	return family + " " + strings.ReplaceAll(version, "-", ".")
}

// StripDateSuffix removes a trailing -YYYYMMDD release date.
func StripDateSuffix(modelName string) string {
	return dateSuffix.ReplaceAllString(modelName, "")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
