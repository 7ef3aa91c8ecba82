package pricing

import (
	"sort"
	"strings"

	"github.com/penwyp/go-molty-meter/internal/core/model"
)

// ModelPricing defines token pricing for one model family.
type ModelPricing struct {
	Input         float64 // Per million tokens
	Output        float64 // Per million tokens
	CacheCreation float64 // Per million tokens
	CacheRead     float64 // Per million tokens
}

// Cost prices a token tally. It is linear in every class.
func (p ModelPricing) Cost(t model.TokenTotals) float64 {
	cost := float64(t.Input) / 1_000_000 * p.Input
	cost += float64(t.Output) / 1_000_000 * p.Output
	cost += float64(t.CacheWrite) / 1_000_000 * p.CacheCreation
	cost += float64(t.CacheRead) / 1_000_000 * p.CacheRead
	return cost
}

// modelPricingMap is the built-in rate card, keyed by model family prefix.
var modelPricingMap = map[string]ModelPricing{
	model.ModelOpus46: {
		Input:         15.00, // $15 per million tokens
		Output:        75.00, // $75 per million tokens
		CacheCreation: 18.75, // $18.75 per million tokens
		CacheRead:     1.50,  // $1.5 per million tokens
	},
	model.ModelOpus45: {
		Input:         15.00,
		Output:        75.00,
		CacheCreation: 18.75,
		CacheRead:     1.50,
	},
	model.ModelSonnet45: {
		Input:         3.00,
		Output:        15.00,
		CacheCreation: 3.75,
		CacheRead:     0.30,
	},
	model.ModelHaiku45: {
		Input:         0.80,
		Output:        4.00,
		CacheCreation: 1.00,
		CacheRead:     0.08,
	},
}

// Table resolves a model identifier to its rate card by longest matching
// key prefix, so dated releases ("claude-haiku-4-5-20251001") share the
// family rate.
type Table struct {
	entries map[string]ModelPricing
	keys    []string // longest first
}

// NewTable builds a table from the given entries. The map is copied.
func NewTable(entries map[string]ModelPricing) *Table {
	t := &Table{entries: make(map[string]ModelPricing, len(entries))}
	for k, v := range entries {
		t.entries[k] = v
		t.keys = append(t.keys, k)
	}
	sort.Slice(t.keys, func(i, j int) bool {
		if len(t.keys[i]) != len(t.keys[j]) {
			return len(t.keys[i]) > len(t.keys[j])
		}
		return t.keys[i] < t.keys[j]
	})
	return t
}

// DefaultTable returns the built-in rate card.
func DefaultTable() *Table {
	return NewTable(modelPricingMap)
}

// Lookup returns the pricing for modelName. The zero pricing and false are
// returned when no key is a prefix of the identifier.
func (t *Table) Lookup(modelName string) (ModelPricing, bool) {
	if p, ok := t.entries[modelName]; ok {
		return p, true
	}
	for _, k := range t.keys {
		if strings.HasPrefix(modelName, k) {
			return t.entries[k], true
		}
	}
	return ModelPricing{}, false
}

// Cost prices a token tally for one model; unknown models cost zero.
func (t *Table) Cost(modelName string, tokens model.TokenTotals) float64 {
	p, _ := t.Lookup(modelName)
	return p.Cost(tokens)
}

// Models lists the table keys, longest first.
func (t *Table) Models() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// GetAllPricings returns a copy of the table entries.
func (t *Table) GetAllPricings() map[string]ModelPricing {
	result := make(map[string]ModelPricing, len(t.entries))
	for k, v := range t.entries {
		result[k] = v
	}
	return result
}
