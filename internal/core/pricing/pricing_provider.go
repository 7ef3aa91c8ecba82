package pricing

import "github.com/penwyp/go-molty-meter/internal/core/model"

// PricingProvider resolves model identifiers to rates. Implementations
// must be safe for concurrent use.
type PricingProvider interface {
	// Lookup returns the pricing for a model, false when unpriced
	Lookup(modelName string) (ModelPricing, bool)

	// Cost prices a token tally for one model
	Cost(modelName string, tokens model.TokenTotals) float64

	// GetProviderName returns the name of this pricing provider
	GetProviderName() string
}
