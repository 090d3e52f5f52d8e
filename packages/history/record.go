// Package history keeps the durable, newest-first ledger of test runs.
//
// Two backends are provided: FileLedger stores the ledger as a single JSON
// array (the format served by GET /get-run-history), and SQLiteLedger keeps
// one row per run. Both serialize appends so concurrent runs cannot drop
// each other's records.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the ISO-8601 form used for Record.Timestamp
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one run in the ledger
type Record struct {
	Timestamp  string `json:"timestamp"`
	ReportName string `json:"reportName"`
	ReportURL  string `json:"reportUrl"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
	ID         string `json:"id,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Source     string `json:"source,omitempty"`
}

// NewRecord builds the record for a finished run. Passed is derived as
// total minus failed.
func NewRecord(at time.Time, reportName, reportURL string, total, failed int) (*Record, error) {
	r := &Record{
		ID:         uuid.NewString(),
		Timestamp:  at.UTC().Format(TimestampLayout),
		ReportName: reportName,
		ReportURL:  reportURL,
		Passed:     total - failed,
		Failed:     failed,
		Total:      total,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the count invariant passed + failed == total
func (r *Record) Validate() error {
	if r.Total < 0 || r.Passed < 0 || r.Failed < 0 {
		return fmt.Errorf("record %s has negative counts", r.ReportName)
	}
	if r.Passed+r.Failed != r.Total {
		return fmt.Errorf("record %s: passed %d + failed %d != total %d", r.ReportName, r.Passed, r.Failed, r.Total)
	}
	return nil
}

// Time parses the record timestamp
func (r *Record) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.Timestamp)
}

// Ledger is the run history store
type Ledger interface {
	// Load returns all records, newest first. The built-in ledgers log
	// unreadable storage and return an empty history instead of an error.
	Load(ctx context.Context) ([]Record, error)

	// Append stores rec as the newest record
	Append(ctx context.Context, rec Record) error

	Close() error
}

// PersistenceError reports a ledger that could not be read or written
type PersistenceError struct {
	Op   string // "load" or "append"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("run history %s failed (%s): %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
