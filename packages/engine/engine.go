// Package engine runs a Postman collection through an external test
// engine and reports the pass/fail summary of the run.
//
// The engine is treated as opaque: it receives a collection, an
// environment and a report destination, renders the HTML report as a
// side effect, and returns how many tests ran and how many failed.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Invocation describes one engine run
type Invocation struct {
	Collection  json.RawMessage
	Environment json.RawMessage

	// ReportPath is where the rendered HTML report is written
	ReportPath string

	// Report presentation
	Title         string
	BrowserTitle  string
	DarkTheme     bool
	ShowOnlyFails bool
}

// Summary is the test statistic of one run
type Summary struct {
	Total    int
	Failed   int
	Duration time.Duration
}

// Passed returns the number of tests that did not fail
func (s *Summary) Passed() int {
	return s.Total - s.Failed
}

// Validate checks that the counts can describe a real run
func (s *Summary) Validate() error {
	if s.Total < 0 || s.Failed < 0 {
		return fmt.Errorf("negative test counts (total=%d, failed=%d)", s.Total, s.Failed)
	}
	if s.Failed > s.Total {
		return fmt.Errorf("failed count %d exceeds total %d", s.Failed, s.Total)
	}
	return nil
}

// Engine executes a collection. Run blocks until the engine finishes. A
// nil summary with a nil error means the engine completed without
// producing one.
type Engine interface {
	Run(ctx context.Context, inv Invocation) (*Summary, error)
}
