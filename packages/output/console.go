package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/orchestrator"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

// FormatRun prints the outcome of a single run
func (f *ConsoleFormatter) FormatRun(out *orchestrator.Outcome) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	rec := out.Record
	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Report: "+rec.ReportName))

	symbol := green("✓")
	if rec.Failed > 0 {
		symbol = red("✗")
	}

	fmt.Fprintf(f.writer, "%s Tests: ", symbol)
	if rec.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", rec.Passed)))
	}
	if rec.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", rec.Failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", rec.Total)
	if rec.DurationMs > 0 {
		fmt.Fprintf(f.writer, "  Time:   %s\n", cyan(fmt.Sprintf("%dms", rec.DurationMs)))
	}
	fmt.Fprintf(f.writer, "  File:   %s\n", out.ReportPath)
	if f.verbose {
		fmt.Fprintf(f.writer, "  URL:    %s\n", rec.ReportURL)
		fmt.Fprintf(f.writer, "  Run:    %s\n", out.RunID)
		if rec.Source != "" {
			fmt.Fprintf(f.writer, "  Source: %s\n", rec.Source)
		}
	}

	if out.PersistErr != nil {
		fmt.Fprintf(f.writer, "  %s %v\n", yellow("Warning: run not saved to history:"), out.PersistErr)
	}
	fmt.Fprintf(f.writer, "\n")
	return nil
}

// FormatHistory prints the ledger as a table, newest first
func (f *ConsoleFormatter) FormatHistory(records []history.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(f.writer, "No runs recorded yet.")
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	tw := tabwriter.NewWriter(f.writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tPASSED\tFAILED\tTOTAL\tREPORT")
	for _, r := range records {
		failed := fmt.Sprintf("%d", r.Failed)
		if r.Failed > 0 {
			failed = red(failed)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.Timestamp, green(fmt.Sprintf("%d", r.Passed)), failed, r.Total, r.ReportName)
	}
	return tw.Flush()
}

// FormatStats prints aggregate run statistics
func (f *ConsoleFormatter) FormatStats(s history.Stats) error {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Run statistics"))
	fmt.Fprintf(f.writer, "  Runs:      %d (%d with failures)\n", s.Runs, s.FailingRuns)
	fmt.Fprintf(f.writer, "  Tests:     %d passed, %d failed, %d total\n", s.PassedTests, s.FailedTests, s.TotalTests)
	fmt.Fprintf(f.writer, "  Pass rate: %.1f%%\n", s.PassRate)
	if s.TimedRuns > 0 {
		fmt.Fprintf(f.writer, "  Duration:  p50 %dms, p95 %dms, p99 %dms, max %dms\n",
			s.DurationP50, s.DurationP95, s.DurationP99, s.DurationMax)
	}
	if s.LastRun != "" {
		fmt.Fprintf(f.writer, "  Last run:  %s\n", s.LastRun)
	}
	fmt.Fprintf(f.writer, "\n")
	return nil
}

// FormatReports prints report names, one per line
func (f *ConsoleFormatter) FormatReports(names []string) error {
	if len(names) == 0 {
		fmt.Fprintln(f.writer, "No reports found.")
		return nil
	}
	_, err := fmt.Fprintln(f.writer, strings.Join(names, "\n"))
	return err
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("hitboard"), version)
}
