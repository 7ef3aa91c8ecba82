package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-molty-meter/internal/config"
	"github.com/penwyp/go-molty-meter/internal/util"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show or change the monthly budget",
}

var budgetShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the budget and cost start date",
	Args:  cobra.NoArgs,
	RunE:  runBudgetShow,
}

var budgetSetCmd = &cobra.Command{
	Use:   "set <amount>",
	Short: "Set the monthly budget in USD",
	Long: `Sets the monthly budget. Anything that is not a positive number is ignored
and the current budget kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runBudgetSet,
}

var budgetCutoffCmd = &cobra.Command{
	Use:   "cutoff <YYYY-MM-DD|none>",
	Short: "Count costs only from this date onward",
	Args:  cobra.ExactArgs(1),
	RunE:  runBudgetCutoff,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetShowCmd, budgetSetCmd, budgetCutoffCmd)
}

// loadFileConfig reads the settings file only, so environment overrides
// never end up persisted.
func loadFileConfig() (string, *config.Config) {
	path := expandPath(configPath)
	return path, config.LoadFile(path)
}

func runBudgetShow(cmd *cobra.Command, args []string) error {
	_, cfg := loadFileConfig()
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Monthly budget:  %s\n", util.FormatCurrency(cfg.MonthlyBudget))
	if cfg.CostStartDate != "" {
		fmt.Fprintf(out, "Counting from:   %s\n", cfg.CostStartDate)
	}
	var sources []string
	if cfg.HasCredential() {
		sources = append(sources, "Anthropic billing API ("+cfg.BillingSource+")")
	}
	if cfg.HasOpenAICredential() {
		sources = append(sources, "OpenAI costs API")
	}
	if len(sources) == 0 {
		sources = append(sources, "local estimate only")
	}
	fmt.Fprintf(out, "Figures from:    %s\n", strings.Join(sources, ", "))
	return nil
}

func runBudgetSet(cmd *cobra.Command, args []string) error {
	path, cfg := loadFileConfig()
	out := cmd.OutOrStdout()

	if !cfg.SetBudgetText(args[0]) {
		fmt.Fprintf(out, "Ignored %q: budget stays %s\n", args[0], util.FormatCurrency(cfg.MonthlyBudget))
		return nil
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Monthly budget set to %s\n", util.FormatCurrency(cfg.MonthlyBudget))
	return nil
}

func runBudgetCutoff(cmd *cobra.Command, args []string) error {
	path, cfg := loadFileConfig()

	value := args[0]
	if value == "none" {
		value = ""
	}
	if err := cfg.SetCutoff(value); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	if cfg.CostStartDate == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Counting the whole month")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Counting costs from %s\n", cfg.CostStartDate)
	}
	return nil
}
