package meter

import (
	"fmt"
	"strings"
	"time"

	"github.com/penwyp/go-molty-meter/internal/config"
	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/data/billing"
)

// MeterConfig contains configuration for a running meter
type MeterConfig struct {
	// Session log roots and the Claude Code home used to find the
	// active session
	LogDirs    []string
	ClaudeHome string

	Timezone string

	MonthlyBudget float64
	Cutoff        *time.Time

	// Authoritative billing. Each provider is reconciled only when its
	// credential is set.
	Credential        billing.Credential
	BillingSource     string
	DescriptionFilter string
	Models            []string
	BaseURL           string

	OpenAICredential billing.Credential
	OpenAIBaseURL    string

	// Refresh settings
	RefreshInterval   time.Duration
	FetchTimeout      time.Duration
	Freshness         time.Duration
	RetryAfterFailure time.Duration

	// Performance settings
	Concurrency int
}

// FromConfig builds a MeterConfig from persisted settings.
func FromConfig(cfg *config.Config) *MeterConfig {
	mc := &MeterConfig{
		LogDirs:           cfg.ExpandedLogDirs(),
		ClaudeHome:        config.ExpandPath(cfg.ClaudeHome),
		Timezone:          cfg.Timezone,
		MonthlyBudget:     cfg.MonthlyBudget,
		Credential:        billing.Credential{AdminKey: cfg.AdminKey, APIKeyID: cfg.APIKeyID},
		OpenAICredential:  billing.Credential{AdminKey: cfg.OpenAIAdminKey},
		BillingSource:     cfg.BillingSource,
		DescriptionFilter: cfg.DescriptionFilter,
		Models:            cfg.Models,
	}
	if cutoff, ok := cfg.Cutoff(); ok {
		mc.Cutoff = &cutoff
	}
	return mc
}

// Validate fills defaults and checks the configuration
func (c *MeterConfig) Validate() error {
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.MonthlyBudget <= 0 {
		c.MonthlyBudget = config.DefaultBudget
	}
	if c.BillingSource == "" {
		c.BillingSource = config.BillingCostReport
	}
	if c.BaseURL == "" {
		c.BaseURL = billing.DefaultBaseURL
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = billing.OpenAIBaseURL
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = 10 * time.Second
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = time.Minute
	}
	if c.Freshness == 0 {
		c.Freshness = billing.DefaultFreshnessWindow
	}
	if c.RetryAfterFailure == 0 {
		c.RetryAfterFailure = time.Minute
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}

	switch c.BillingSource {
	case config.BillingCostReport, config.BillingUsageReport:
	default:
		return fmt.Errorf("unknown billing source %q", c.BillingSource)
	}
	return nil
}

// credential returns the billing credential for a provider; the zero
// credential means the provider is not reconciled.
func (c *MeterConfig) credential(kind model.ProviderKind) billing.Credential {
	switch kind {
	case model.ProviderAnthropic:
		return c.Credential
	case model.ProviderOpenAI:
		return c.OpenAICredential
	}
	return billing.Credential{}
}

// filterNote describes how the Anthropic query is narrowed, empty when it
// covers all usage.
func (c *MeterConfig) filterNote() string {
	switch {
	case c.BillingSource == config.BillingCostReport && c.DescriptionFilter != "":
		return fmt.Sprintf("only costs matching %q", c.DescriptionFilter)
	case c.BillingSource == config.BillingUsageReport && len(c.Models) > 0:
		return "only " + strings.Join(c.Models, ", ")
	}
	return ""
}
