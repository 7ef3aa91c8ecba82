package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg := LoadFile(filepath.Join(t.TempDir(), "nope.json"))

	assert.Equal(t, DefaultBudget, cfg.MonthlyBudget)
	assert.Equal(t, BillingCostReport, cfg.BillingSource)
	assert.Equal(t, []string{"~/.claude/projects", "~/.openclaw/agents"}, cfg.LogDirs)
	assert.False(t, cfg.HasCredential())
	_, ok := cfg.Cutoff()
	assert.False(t, ok)
}

func TestLoadFileMalformedReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	cfg := LoadFile(path)
	assert.Equal(t, DefaultBudget, cfg.MonthlyBudget)
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	require.NoError(t, cfg.SetBudget(250))
	require.NoError(t, cfg.SetCutoff("2026-10-10"))
	cfg.AdminKey = "sk-ant-admin-1"
	cfg.Models = []string{"claude-haiku-4-5"}
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded := LoadFile(path)
	assert.Equal(t, 250.0, loaded.MonthlyBudget)
	assert.Equal(t, "2026-10-10", loaded.CostStartDate)
	assert.Equal(t, "sk-ant-admin-1", loaded.AdminKey)
	assert.Equal(t, []string{"claude-haiku-4-5"}, loaded.Models)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "monthlyBudget: 42.5\nbillingSource: usage_report\nmodels:\n  - claude-sonnet-4-5\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg := LoadFile(path)
	assert.Equal(t, 42.5, cfg.MonthlyBudget)
	assert.Equal(t, BillingUsageReport, cfg.BillingSource)
	assert.Equal(t, []string{"claude-sonnet-4-5"}, cfg.Models)
	require.NoError(t, cfg.Validate())
}

func TestNonPositiveBudgetInFileFallsBackToDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"monthlyBudget": -5}`), 0600))

	assert.Equal(t, DefaultBudget, LoadFile(path).MonthlyBudget)
}

func TestSetBudgetText(t *testing.T) {
	tests := []struct {
		input string
		ok    bool
		want  float64
	}{
		{"150", true, 150},
		{"  75.5 ", true, 75.5},
		{"$1,200.50", true, 1200.5},
		{"0", false, DefaultBudget},
		{"-10", false, DefaultBudget},
		{"abc", false, DefaultBudget},
		{"", false, DefaultBudget},
		{"NaN", false, DefaultBudget},
		{"Inf", false, DefaultBudget},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cfg := Default()
			assert.Equal(t, tt.ok, cfg.SetBudgetText(tt.input))
			assert.Equal(t, tt.want, cfg.MonthlyBudget)
		})
	}
}

func TestCutoff(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.SetCutoff("2026-10-10"))
	cutoff, ok := cfg.Cutoff()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC), cutoff)

	err := cfg.SetCutoff("10/10/2026")
	assert.ErrorIs(t, err, ErrInvalidCutoff)
	assert.Equal(t, "2026-10-10", cfg.CostStartDate)

	require.NoError(t, cfg.SetCutoff(""))
	_, ok = cfg.Cutoff()
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.BillingSource = "invoices"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.CostStartDate = "yesterday"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidCutoff)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.AdminKey = "from-file"

	cfg.ApplyEnv(envMap(map[string]string{
		"ANTHROPIC_ADMIN_KEY":   "from-anthropic-env",
		"MOLTY_MONTHLY_BUDGET":  "300",
		"MOLTY_COST_START_DATE": "2026-10-03",
	}))
	assert.Equal(t, "from-anthropic-env", cfg.AdminKey)
	assert.Equal(t, 300.0, cfg.MonthlyBudget)
	assert.Equal(t, "2026-10-03", cfg.CostStartDate)

	cfg.ApplyEnv(envMap(map[string]string{
		"MOLTY_ADMIN_KEY":      "from-molty-env",
		"ANTHROPIC_ADMIN_KEY":  "ignored",
		"MOLTY_MONTHLY_BUDGET": "lots",
	}))
	assert.Equal(t, "from-molty-env", cfg.AdminKey)
	assert.Equal(t, 300.0, cfg.MonthlyBudget)
	assert.False(t, cfg.HasOpenAICredential())

	cfg.ApplyEnv(envMap(map[string]string{"OPENAI_ADMIN_KEY": "sk-admin-openai"}))
	assert.True(t, cfg.HasOpenAICredential())
	assert.Equal(t, "sk-admin-openai", cfg.OpenAIAdminKey)

	cfg.ApplyEnv(envMap(map[string]string{
		"MOLTY_OPENAI_ADMIN_KEY": "sk-admin-molty",
		"OPENAI_ADMIN_KEY":       "ignored",
	}))
	assert.Equal(t, "sk-admin-molty", cfg.OpenAIAdminKey)
	assert.Equal(t, "from-molty-env", cfg.AdminKey)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "MOLTY_DOTENV_PROBE"
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=probe-value\n"), 0600))
	t.Cleanup(func() { os.Unsetenv(key) })

	LoadDotEnv(dir)
	assert.Equal(t, "probe-value", os.Getenv(key))
}

func TestLoadAppliesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"monthlyBudget": 80}`), 0600))
	t.Setenv("MOLTY_MONTHLY_BUDGET", "90")
	t.Setenv("MOLTY_ADMIN_KEY", "sk-ant-admin-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90.0, cfg.MonthlyBudget)
	assert.True(t, cfg.HasCredential())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".claude"), ExpandPath("~/.claude"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/tmp/x", ExpandPath("/tmp/x"))
}
