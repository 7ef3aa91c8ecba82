package pricing

// DefaultProvider serves the built-in static rate card.
type DefaultProvider struct {
	*Table
}

// NewDefaultProvider creates a new default pricing provider
func NewDefaultProvider() PricingProvider {
	return &DefaultProvider{Table: DefaultTable()}
}

// GetProviderName returns the name of this pricing provider
func (p *DefaultProvider) GetProviderName() string {
	return "default"
}
