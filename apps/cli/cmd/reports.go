package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitboard/packages/output"
	"github.com/abdul-hamid-achik/hitboard/packages/report"
)

var reportsOutputFlag string

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List rendered reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		formatter, err := output.New(reportsOutputFlag, output.WithWriter(cmd.OutOrStdout()), output.WithNoColor(noColorFlag))
		if err != nil {
			return withExitCode(ExitUsageError, err)
		}

		names, err := report.List(cfg.Storage.ReportsDir)
		if err != nil {
			return err
		}
		return formatter.FormatReports(names)
	},
}

func init() {
	reportsCmd.Flags().StringVarP(&reportsOutputFlag, "output", "o", "console", "Output format: console, json")
}
