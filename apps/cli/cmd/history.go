package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/output"
)

var (
	historyLimitFlag  int
	historyStatsFlag  bool
	historyOutputFlag string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the run history, newest first",
	Long: `Show recorded runs, newest first.

Examples:
  hitboard history
  hitboard history --limit 10
  hitboard history --stats
  hitboard history -o json`,
	Args: cobra.NoArgs,
	RunE: historyCommand,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", getEnvInt("HITBOARD_HISTORY_LIMIT", 0), "Show at most this many runs, 0 for all (env: HITBOARD_HISTORY_LIMIT)")
	historyCmd.Flags().BoolVar(&historyStatsFlag, "stats", false, "Show pass rate and duration percentiles instead of runs")
	historyCmd.Flags().StringVarP(&historyOutputFlag, "output", "o", "console", "Output format: console, json")
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatter, err := output.New(historyOutputFlag, output.WithWriter(cmd.OutOrStdout()), output.WithNoColor(noColorFlag))
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	ledger, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer ledger.Close()

	records, err := ledger.Load(cmd.Context())
	if err != nil {
		return err
	}

	if historyStatsFlag {
		return formatter.FormatStats(history.Summarize(records))
	}
	if historyLimitFlag > 0 && len(records) > historyLimitFlag {
		records = records[:historyLimitFlag]
	}
	return formatter.FormatHistory(records)
}
