package model

import "strings"

// contextWindows lists context window sizes in tokens by model prefix,
// most specific first.
var contextWindows = []struct {
	prefix string
	tokens int
}{
	{"claude", 200_000},
	{"gpt-4.1", 1_047_576},
	{"gpt-5", 400_000},
	{"gpt-4o", 128_000},
	{"o3", 200_000},
	{"o1", 200_000},
	{"gemini", 1_048_576},
}

// ContextWindow returns the context window of a model in tokens, or 0 when
// the model is not known.
func ContextWindow(modelName string) int {
	lower := strings.ToLower(modelName)
	for _, w := range contextWindows {
		if strings.HasPrefix(lower, w.prefix) {
			return w.tokens
		}
	}
	return 0
}
