package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/data/aggregator"
	"github.com/penwyp/go-molty-meter/internal/presentation/formatter"
	"github.com/penwyp/go-molty-meter/internal/util"
)

var (
	reportOutput   string
	reportProvider string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show this month's spend per day",
	Long: `Buckets this month's sessions by the local day they started on and prints the
cost per day. Only sessions that cost something are counted.

Examples:
  go-molty-meter report
  go-molty-meter report --output json
  go-molty-meter report -o csv > october.csv
  go-molty-meter report --provider openai`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "table",
		"Output format (table, json, csv, summary)")
	reportCmd.Flags().StringVar(&reportProvider, "provider", "",
		"Only count models routed to this provider (anthropic, openai)")
}

func providerFilter(name string) (aggregator.ModelFilter, error) {
	switch strings.ToLower(name) {
	case "":
		return nil, nil
	case model.ProviderAnthropic.String():
		return aggregator.ProviderFilter(model.ProviderAnthropic), nil
	case model.ProviderOpenAI.String():
		return aggregator.ProviderFilter(model.ProviderOpenAI), nil
	}
	return nil, fmt.Errorf("unknown provider %q (want anthropic or openai)", name)
}

func runReport(cmd *cobra.Command, args []string) error {
	f, err := formatter.New(reportOutput, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	filter, err := providerFilter(reportProvider)
	if err != nil {
		return err
	}

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

	days, err := m.DailySpend(filter)
	if err != nil {
		return err
	}
	return f.Format(days)
}
