// Package output renders runs, run history and reports for the terminal.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//
// Both formatters implement Formatter.
package output

import (
	"fmt"

	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/orchestrator"
)

// Formatter renders CLI results
type Formatter interface {
	FormatRun(out *orchestrator.Outcome) error
	FormatHistory(records []history.Record) error
	FormatStats(stats history.Stats) error
	FormatReports(names []string) error
	FormatError(err error)
}

// New returns the formatter for a format name
func New(format string, opts ...ConsoleOption) (Formatter, error) {
	switch format {
	case "", "console":
		return NewConsoleFormatter(opts...), nil
	case "json":
		f := NewConsoleFormatter(opts...)
		return NewJSONFormatter(JSONWithWriter(f.writer)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use console or json)", format)
	}
}
