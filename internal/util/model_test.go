package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayModelName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"claude-opus-4-6", "Opus 4.6"},
		{"claude-sonnet-4-5", "Sonnet 4.5"},
		{"claude-haiku-4-5-20251001", "Haiku 4.5"},
		{"claude-opus", "Opus"},
		{"gpt-4o", "gpt-4o"},
		{"", "—"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayModelName(tt.input))
		})
	}
}

func TestStripDateSuffix(t *testing.T) {
	assert.Equal(t, "claude-haiku-4-5", StripDateSuffix("claude-haiku-4-5-20251001"))
	assert.Equal(t, "claude-haiku-4-5", StripDateSuffix("claude-haiku-4-5"))
	assert.Equal(t, "model-2024", StripDateSuffix("model-2024"))
}
