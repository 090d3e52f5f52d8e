package engine

import (
	"time"

	"github.com/tidwall/gjson"
)

// Paths into the newman JSON reporter export
const (
	testsTotalPath  = "run.stats.tests.total"
	testsFailedPath = "run.stats.tests.failed"
	startedPath     = "run.timings.started"
	completedPath   = "run.timings.completed"
)

// ParseSummary extracts the test statistic from a newman JSON export.
// It returns a SummaryMissingError when the document does not carry one.
func ParseSummary(data []byte) (*Summary, error) {
	if len(data) == 0 {
		return nil, &SummaryMissingError{Reason: "empty summary document"}
	}
	if !gjson.ValidBytes(data) {
		return nil, &SummaryMissingError{Reason: "summary document is not valid JSON"}
	}

	results := gjson.GetManyBytes(data, testsTotalPath, testsFailedPath, startedPath, completedPath)
	total, failed := results[0], results[1]

	if total.Type != gjson.Number || failed.Type != gjson.Number {
		return nil, &SummaryMissingError{Reason: "run.stats.tests is missing"}
	}

	summary := &Summary{
		Total:  int(total.Int()),
		Failed: int(failed.Int()),
	}
	if err := summary.Validate(); err != nil {
		return nil, &SummaryMissingError{Reason: err.Error()}
	}

	if started, completed := results[2], results[3]; started.Type == gjson.Number && completed.Type == gjson.Number {
		if d := completed.Int() - started.Int(); d > 0 {
			summary.Duration = time.Duration(d) * time.Millisecond
		}
	}

	return summary, nil
}
