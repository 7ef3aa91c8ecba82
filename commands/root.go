package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-molty-meter/internal/application/meter"
	"github.com/penwyp/go-molty-meter/internal/config"
	"github.com/penwyp/go-molty-meter/internal/presentation/display"
	"github.com/penwyp/go-molty-meter/internal/util"
)

var (
	// Logging related
	debug bool

	// Settings
	configPath string
	logDirs    []string
	timezone   string

	// One-shot
	waitTimeout time.Duration

	rootCmd = &cobra.Command{
		Use:   "go-molty-meter [flags]",
		Short: "Monthly LLM spend meter for coding-agent sessions",
		Long: `go-molty-meter tracks what your Claude Code and OpenClaw sessions cost this month.

It prices the local session logs with a static rate card and, when an Anthropic
admin key is configured, reconciles the figure against the billing API.

Examples:
  go-molty-meter                              # Print the current status once
  go-molty-meter watch                        # Keep a live status line
  go-molty-meter report --output csv          # Daily spend for this month
  go-molty-meter budget set 150               # Set the monthly budget`,
		SilenceUsage: true,
		RunE:         runStatus,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(),
		"Config file (.json, .yaml or .yml)")
	rootCmd.PersistentFlags().StringSliceVar(&logDirs, "dir", nil,
		"Session log directories (default from config)")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "",
		"Timezone for month and day boundaries (e.g., Local, UTC, Europe/Berlin)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug mode")

	rootCmd.Flags().DurationVar(&waitTimeout, "wait", 20*time.Second,
		"How long to wait for the billing API before printing the local estimate")
}

func Execute() error {
	return rootCmd.Execute()
}

// setup initialises logging and loads the settings, applying flag
// overrides.
func setup() (*config.Config, error) {
	logLevel := "info"
	if debug {
		logLevel = "debug"
	}

	logFile := expandPath(config.DefaultLogFile)
	if err := ensureDir(filepath.Dir(logFile)); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if err := util.InitLogger(logLevel, logFile, debug); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.Load(expandPath(configPath))
	if err != nil {
		return nil, err
	}

	if len(logDirs) > 0 {
		cfg.LogDirs = logDirs
	}
	if timezone != "" {
		cfg.Timezone = timezone
	}
	if err := util.InitializeTimeProvider(cfg.Timezone); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newMeter builds a meter from the settings. A zero interval keeps the
// default refresh timer.
func newMeter(cfg *config.Config, interval time.Duration) (*meter.Meter, error) {
	mc := meter.FromConfig(cfg)
	mc.Concurrency = runtime.NumCPU()
	mc.RefreshInterval = interval
	return meter.New(mc, meter.WithClock(util.GetTimeProvider()))
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	defer util.CloseLogger()

	m, err := newMeter(cfg, 0)
	if err != nil {
		return err
	}
	defer m.Stop()

	ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout)
	defer cancel()

	snap := m.Once(ctx)
	return display.NewStatusPrinter(cmd.OutOrStdout()).PrintBlock(snap)
}

// Helper functions

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
