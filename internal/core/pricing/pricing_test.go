package pricing

import (
	"testing"

	"github.com/penwyp/go-molty-meter/internal/core/model"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	table := DefaultTable()

	tests := []struct {
		name   string
		model  string
		want   ModelPricing
		wantOK bool
	}{
		{
			name:   "opus pricing",
			model:  model.ModelOpus46,
			want:   ModelPricing{Input: 15.00, Output: 75.00, CacheCreation: 18.75, CacheRead: 1.50},
			wantOK: true,
		},
		{
			name:   "sonnet pricing",
			model:  model.ModelSonnet45,
			want:   ModelPricing{Input: 3.00, Output: 15.00, CacheCreation: 3.75, CacheRead: 0.30},
			wantOK: true,
		},
		{
			name:   "dated haiku matches family",
			model:  "claude-haiku-4-5-20251001",
			want:   ModelPricing{Input: 0.80, Output: 4.00, CacheCreation: 1.00, CacheRead: 0.08},
			wantOK: true,
		},
		{
			name:   "unknown model is unpriced",
			model:  "gpt-4o",
			want:   ModelPricing{},
			wantOK: false,
		},
		{
			name:   "shorter identifier does not match",
			model:  "claude-opus",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Lookup(tt.model)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupPrefersLongestPrefix(t *testing.T) {
	table := NewTable(map[string]ModelPricing{
		"claude":          {Input: 1},
		"claude-opus":     {Input: 2},
		"claude-opus-4-6": {Input: 3},
	})

	p, ok := table.Lookup("claude-opus-4-6-20260101")
	assert.True(t, ok)
	assert.Equal(t, 3.0, p.Input)

	p, _ = table.Lookup("claude-opus-3")
	assert.Equal(t, 2.0, p.Input)

	p, _ = table.Lookup("claude-sonnet")
	assert.Equal(t, 1.0, p.Input)

	assert.Equal(t, []string{"claude-opus-4-6", "claude-opus", "claude"}, table.Models())
}

func TestCostIsLinear(t *testing.T) {
	table := DefaultTable()
	a := model.TokenTotals{Input: 1234, Output: 567, CacheRead: 89_000, CacheWrite: 4_321}
	b := model.TokenTotals{Input: 9_876_543, Output: 21, CacheRead: 0, CacheWrite: 777}

	for _, m := range table.Models() {
		t.Run(m, func(t *testing.T) {
			sum := table.Cost(m, a.Add(b))
			parts := table.Cost(m, a) + table.Cost(m, b)
			assert.InDelta(t, parts, sum, 1e-9)
		})
	}
}

func TestCostValues(t *testing.T) {
	table := DefaultTable()

	// 1M of each class on opus: 15 + 75 + 1.5 + 18.75
	million := model.TokenTotals{Input: 1_000_000, Output: 1_000_000, CacheRead: 1_000_000, CacheWrite: 1_000_000}
	assert.InDelta(t, 110.25, table.Cost(model.ModelOpus46, million), 1e-9)
	assert.Equal(t, 0.0, table.Cost("mystery-model", million))
}

func TestDefaultProvider(t *testing.T) {
	provider := NewDefaultProvider()
	assert.Equal(t, "default", provider.GetProviderName())

	p, ok := provider.Lookup(model.ModelSonnet45 + "-20250929")
	assert.True(t, ok)
	assert.Equal(t, 3.0, p.Input)
}

func TestGetAllPricingsReturnsCopy(t *testing.T) {
	table := DefaultTable()
	all := table.GetAllPricings()
	assert.Len(t, all, 4)

	all[model.ModelOpus46] = ModelPricing{}
	p, _ := table.Lookup(model.ModelOpus46)
	assert.Equal(t, 15.0, p.Input)
}
