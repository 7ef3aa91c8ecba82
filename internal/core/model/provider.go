package model

import "strings"

// ProviderKind is the closed set of providers the meter knows how to route.
type ProviderKind int

const (
	ProviderUnknown ProviderKind = iota
	ProviderAnthropic
	ProviderOpenAI
)

// Provider classifies a model identifier. Unknown providers keep the raw
// model string for display.
type Provider struct {
	Kind  ProviderKind
	Model string
}

// ProviderFor classifies a model by its identifier prefix.
func ProviderFor(modelName string) Provider {
	lower := strings.ToLower(modelName)
	switch {
	case strings.HasPrefix(lower, "claude"):
		return Provider{Kind: ProviderAnthropic, Model: modelName}
	case strings.HasPrefix(lower, "gpt"), strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"):
		return Provider{Kind: ProviderOpenAI, Model: modelName}
	default:
		return Provider{Kind: ProviderUnknown, Model: modelName}
	}
}

// DisplayName is a human label for the provider.
func (p Provider) DisplayName() string {
	switch p.Kind {
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderOpenAI:
		return "OpenAI"
	}

	lower := strings.ToLower(p.Model)
	switch {
	case strings.HasPrefix(lower, "gemini"):
		return "Google"
	case strings.HasPrefix(lower, "deepseek"):
		return "DeepSeek"
	case strings.HasPrefix(lower, "mistral"), strings.HasPrefix(lower, "codestral"):
		return "Mistral"
	}
	return p.Model
}

// CostURL links to the provider's billing console, empty when unknown.
func (p Provider) CostURL() string {
	switch p.Kind {
	case ProviderAnthropic:
		return "https://console.anthropic.com/settings/cost"
	case ProviderOpenAI:
		return "https://platform.openai.com/settings/organization/limits"
	}
	return ""
}

func (k ProviderKind) String() string {
	switch k {
	case ProviderAnthropic:
		return "anthropic"
	case ProviderOpenAI:
		return "openai"
	}
	return "unknown"
}
