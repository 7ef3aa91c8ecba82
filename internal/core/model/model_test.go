package model

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogUsageDecodesBothSpellings(t *testing.T) {
	tests := []struct {
		name string
		json string
		want [4]int
	}{
		{
			name: "claude code",
			json: `{"input_tokens":10,"output_tokens":20,"cache_read_input_tokens":30,"cache_creation_input_tokens":40}`,
			want: [4]int{10, 20, 30, 40},
		},
		{
			name: "openclaw",
			json: `{"input":1,"output":2,"cacheRead":3,"cacheWrite":4}`,
			want: [4]int{1, 2, 3, 4},
		},
		{
			name: "unparseable values default to zero",
			json: `{"input_tokens":"12","output_tokens":"abc","cache_read_input_tokens":null,"cache_creation_input_tokens":true}`,
			want: [4]int{12, 0, 0, 0},
		},
		{
			name: "negative clamps to zero",
			json: `{"input_tokens":-5,"output_tokens":7.9}`,
			want: [4]int{0, 7, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u LogUsage
			require.NoError(t, sonic.Unmarshal([]byte(tt.json), &u))
			in, out, cr, cw := u.Tokens()
			assert.Equal(t, tt.want, [4]int{in, out, cr, cw})
		})
	}
}

func TestLogUsagePrecomputedCost(t *testing.T) {
	var u LogUsage
	require.NoError(t, sonic.Unmarshal([]byte(`{"input":1,"cost":{"total":0.0125}}`), &u))
	cost, ok := u.PrecomputedCost()
	assert.True(t, ok)
	assert.InDelta(t, 0.0125, cost, 1e-12)

	var bare LogUsage
	require.NoError(t, sonic.Unmarshal([]byte(`{"input":1,"cost":{}}`), &bare))
	_, ok = bare.PrecomputedCost()
	assert.False(t, ok)
}

func TestParsedSessionDerivedValues(t *testing.T) {
	start := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	s := &ParsedSession{
		StartTime: &start,
		Events: []UsageEvent{
			{Model: ModelSonnet45, InputTokens: 100, OutputTokens: 10, Timestamp: start.Add(time.Minute)},
			{Model: ModelOpus46, InputTokens: 1, CacheReadTokens: 5, CacheWriteTokens: 7, Timestamp: start.Add(2 * time.Minute)},
		},
	}

	assert.Equal(t, TokenTotals{Input: 101, Output: 10, CacheRead: 5, CacheWrite: 7}, s.Totals())
	assert.Equal(t, 123, s.Totals().Total())
	assert.Equal(t, ModelOpus46, s.PrimaryModel())
	assert.Equal(t, 13, s.ContextTokens())
	assert.Equal(t, 30*time.Minute, s.Duration(start.Add(30*time.Minute)))
	assert.Equal(t, time.Duration(0), s.Duration(start.Add(-time.Hour)))

	got, ok := s.EffectiveStart()
	assert.True(t, ok)
	assert.Equal(t, start, got)
}

func TestParsedSessionWithoutStart(t *testing.T) {
	s := &ParsedSession{}
	assert.Equal(t, UnknownModel, s.PrimaryModel())
	assert.Equal(t, 0, s.ContextTokens())
	assert.Equal(t, time.Duration(0), s.Duration(time.Now()))
	_, ok := s.EffectiveStart()
	assert.False(t, ok)

	first := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	s.Events = []UsageEvent{{Timestamp: first}}
	got, ok := s.EffectiveStart()
	assert.True(t, ok)
	assert.Equal(t, first, got)
}

func TestProviderFor(t *testing.T) {
	tests := []struct {
		model       string
		kind        ProviderKind
		displayName string
		hasURL      bool
	}{
		{"claude-opus-4-6", ProviderAnthropic, "Anthropic", true},
		{"Claude-Haiku", ProviderAnthropic, "Anthropic", true},
		{"gpt-4o", ProviderOpenAI, "OpenAI", true},
		{"o3-mini", ProviderOpenAI, "OpenAI", true},
		{"gemini-2.5-pro", ProviderUnknown, "Google", false},
		{"deepseek-chat", ProviderUnknown, "DeepSeek", false},
		{"codestral-latest", ProviderUnknown, "Mistral", false},
		{"llama-3", ProviderUnknown, "llama-3", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p := ProviderFor(tt.model)
			assert.Equal(t, tt.kind, p.Kind)
			assert.Equal(t, tt.model, p.Model)
			assert.Equal(t, tt.displayName, p.DisplayName())
			assert.Equal(t, tt.hasURL, p.CostURL() != "")
		})
	}
}

func TestContextWindow(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{ModelOpus46, 200_000},
		{"claude-haiku-4-5-20251001", 200_000},
		{"gpt-5-codex", 400_000},
		{"gpt-4.1-mini", 1_047_576},
		{"Gemini-2.5-Pro", 1_048_576},
		{"mystery", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContextWindow(tt.model), tt.model)
	}
}
