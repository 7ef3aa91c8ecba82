package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-molty-meter/internal/presentation/display"
	"github.com/penwyp/go-molty-meter/internal/util"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a live spend status line",
	Long: `Refreshes whenever a session log changes, and at least every --interval.
The billing API is queried at most once per freshness window.
Press Ctrl-C to stop.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", 10*time.Second,
		"Fallback refresh interval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchInterval < time.Second {
		return fmt.Errorf("interval must be at least 1s")
	}

	cfg, err := setup()
	if err != nil {
		return err
	}
	defer util.CloseLogger()

	m, err := newMeter(cfg, watchInterval)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := display.NewStatusPrinter(cmd.OutOrStdout())
	util.LogInfo("Starting meter", util.F("roots", cfg.LogDirs))
	m.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout())
			util.LogInfo("Shutting down meter")
			return m.Stop()
		case <-m.State().Changes():
			if err := printer.PrintLine(m.Snapshot()); err != nil {
				return err
			}
		}
	}
}
