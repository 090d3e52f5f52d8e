package output

import (
	"encoding/json"
	"io"
	"os"

	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/orchestrator"
)

// JSONRun represents the JSON output of a single run
type JSONRun struct {
	RunID      string          `json:"runId"`
	ReportPath string          `json:"reportPath"`
	Record     *history.Record `json:"record"`
	Warning    string          `json:"warning,omitempty"`
}

// JSONError represents a failed command
type JSONError struct {
	Error string `json:"error"`
}

// JSONFormatter formats results as indented JSON
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatRun(out *orchestrator.Outcome) error {
	run := JSONRun{
		RunID:      out.RunID,
		ReportPath: out.ReportPath,
		Record:     out.Record,
	}
	if out.PersistErr != nil {
		run.Warning = out.PersistErr.Error()
	}
	return f.encode(run)
}

func (f *JSONFormatter) FormatHistory(records []history.Record) error {
	if records == nil {
		records = []history.Record{}
	}
	return f.encode(records)
}

func (f *JSONFormatter) FormatStats(stats history.Stats) error {
	return f.encode(stats)
}

func (f *JSONFormatter) FormatReports(names []string) error {
	if names == nil {
		names = []string{}
	}
	return f.encode(names)
}

func (f *JSONFormatter) FormatError(err error) {
	_ = f.encode(JSONError{Error: err.Error()})
}

func (f *JSONFormatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
