package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/penwyp/go-molty-meter/internal/util"
)

const (
	BillingCostReport  = "cost_report"
	BillingUsageReport = "usage_report"

	DefaultBudget   = 100.0
	DefaultDir      = "~/.go-molty-meter"
	DefaultFileName = "config.json"
	DefaultLogFile  = DefaultDir + "/logs/app.log"

	cutoffLayout = "2006-01-02"
)

var (
	ErrInvalidBudget = errors.New("config: budget must be a positive number")
	ErrInvalidCutoff = errors.New("config: cost start date must be YYYY-MM-DD")
)

// Config is the meter's persisted settings record.
type Config struct {
	MonthlyBudget     float64  `json:"monthlyBudget" yaml:"monthlyBudget"`
	AdminKey          string   `json:"adminKey,omitempty" yaml:"adminKey,omitempty"`
	APIKeyID          string   `json:"apiKeyId,omitempty" yaml:"apiKeyId,omitempty"`
	OpenAIAdminKey    string   `json:"openaiAdminKey,omitempty" yaml:"openaiAdminKey,omitempty"`
	CostStartDate     string   `json:"costStartDate,omitempty" yaml:"costStartDate,omitempty"`
	BillingSource     string   `json:"billingSource,omitempty" yaml:"billingSource,omitempty"`
	DescriptionFilter string   `json:"descriptionFilter,omitempty" yaml:"descriptionFilter,omitempty"`
	Models            []string `json:"models,omitempty" yaml:"models,omitempty"`
	LogDirs           []string `json:"logDirs,omitempty" yaml:"logDirs,omitempty"`
	ClaudeHome        string   `json:"claudeHome,omitempty" yaml:"claudeHome,omitempty"`
	Timezone          string   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// DefaultPath is ~/.go-molty-meter/config.json.
func DefaultPath() string {
	return filepath.Join(ExpandPath(DefaultDir), DefaultFileName)
}

func (c *Config) applyDefaults() {
	if c.MonthlyBudget <= 0 || math.IsNaN(c.MonthlyBudget) || math.IsInf(c.MonthlyBudget, 0) {
		c.MonthlyBudget = DefaultBudget
	}
	if c.BillingSource == "" {
		c.BillingSource = BillingCostReport
	}
	if len(c.LogDirs) == 0 {
		c.LogDirs = []string{"~/.claude/projects", "~/.openclaw/agents"}
	}
	if c.ClaudeHome == "" {
		c.ClaudeHome = "~/.claude"
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
}

// Validate fills defaults and rejects settings the meter cannot use.
func (c *Config) Validate() error {
	c.applyDefaults()

	switch c.BillingSource {
	case BillingCostReport, BillingUsageReport:
	default:
		return fmt.Errorf("config: unknown billing source %q", c.BillingSource)
	}
	if c.CostStartDate != "" {
		if _, err := time.Parse(cutoffLayout, c.CostStartDate); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidCutoff, c.CostStartDate)
		}
	}
	return nil
}

// LoadFile reads settings from path without environment overrides. A
// missing or unreadable file yields defaults.
func LoadFile(path string) *Config {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			util.LogWarn(fmt.Sprintf("Failed to read config %s: %v", path, err))
		}
		cfg.applyDefaults()
		return cfg
	}

	if err := decode(path, data, cfg); err != nil {
		util.LogWarn(fmt.Sprintf("Ignoring malformed config %s: %v", path, err))
		cfg = &Config{}
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads settings from path, then applies .env files and environment
// overrides.
func Load(path string) (*Config, error) {
	LoadDotEnv(filepath.Dir(path))

	cfg := LoadFile(path)
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads the first .env file found in dirs or the working
// directory. Variables already set in the environment win.
func LoadDotEnv(dirs ...string) {
	paths := make([]string, 0, len(dirs)+1)
	for _, dir := range dirs {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				util.LogWarn(fmt.Sprintf("Failed to load %s: %v", path, err))
			}
			return
		}
	}
}

// ApplyEnv overrides settings from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("MOLTY_ADMIN_KEY"); v != "" {
		c.AdminKey = v
	} else if v := getenv("ANTHROPIC_ADMIN_KEY"); v != "" {
		c.AdminKey = v
	}
	if v := getenv("MOLTY_OPENAI_ADMIN_KEY"); v != "" {
		c.OpenAIAdminKey = v
	} else if v := getenv("OPENAI_ADMIN_KEY"); v != "" {
		c.OpenAIAdminKey = v
	}
	if v := getenv("MOLTY_MONTHLY_BUDGET"); v != "" {
		if !c.SetBudgetText(v) {
			util.LogWarn("Ignoring invalid MOLTY_MONTHLY_BUDGET", util.F("value", v))
		}
	}
	if v := getenv("MOLTY_COST_START_DATE"); v != "" {
		if err := c.SetCutoff(v); err != nil {
			util.LogWarn(err.Error())
		}
	}
}

// Save writes the settings atomically with owner-only permissions.
func (c *Config) Save(path string) error {
	data, err := encode(path, c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	util.LogDebug(fmt.Sprintf("Saved config to %s", path))
	return nil
}

// SetBudget sets the monthly budget.
func (c *Config) SetBudget(v float64) error {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrInvalidBudget
	}
	c.MonthlyBudget = v
	return nil
}

// SetBudgetText parses a user-entered budget such as "150" or "$1,200.50".
// Anything that is not a positive number is discarded and the previous
// budget kept.
func (c *Config) SetBudgetText(text string) bool {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return false
	}
	return c.SetBudget(v) == nil
}

// SetCutoff sets the cost start date. An empty string clears it.
func (c *Config) SetCutoff(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		c.CostStartDate = ""
		return nil
	}
	if _, err := time.Parse(cutoffLayout, text); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidCutoff, text)
	}
	c.CostStartDate = text
	return nil
}

// Cutoff returns the cost start date as midnight UTC.
func (c *Config) Cutoff() (time.Time, bool) {
	if c.CostStartDate == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(cutoffLayout, c.CostStartDate, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HasCredential reports whether an Anthropic admin key is configured.
func (c *Config) HasCredential() bool {
	return strings.TrimSpace(c.AdminKey) != ""
}

// HasOpenAICredential reports whether an OpenAI admin key is configured.
func (c *Config) HasOpenAICredential() bool {
	return strings.TrimSpace(c.OpenAIAdminKey) != ""
}

// ExpandedLogDirs returns LogDirs with ~ expanded.
func (c *Config) ExpandedLogDirs() []string {
	dirs := make([]string, len(c.LogDirs))
	for i, d := range c.LogDirs {
		dirs[i] = ExpandPath(d)
	}
	return dirs
}

// ExpandPath expands a leading ~/ to the home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return sonic.Unmarshal(data, cfg)
}

func encode(path string, cfg *Config) ([]byte, error) {
	if isYAML(path) {
		return yaml.Marshal(cfg)
	}
	return sonic.ConfigStd.MarshalIndent(cfg, "", "  ")
}
