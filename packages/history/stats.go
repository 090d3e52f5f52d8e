package history

import (
	"github.com/HdrHistogram/hdrhistogram-go"
)

// Stats aggregates the ledger for the dashboard
type Stats struct {
	Runs        int     `json:"runs"`
	FailingRuns int     `json:"failingRuns"`
	TotalTests  int     `json:"totalTests"`
	PassedTests int     `json:"passedTests"`
	FailedTests int     `json:"failedTests"`
	PassRate    float64 `json:"passRate"` // percent of tests passed, 0 when no tests ran
	LastRun     string  `json:"lastRun,omitempty"`
	DurationP50 int64   `json:"durationP50Ms"`
	DurationP95 int64   `json:"durationP95Ms"`
	DurationP99 int64   `json:"durationP99Ms"`
	DurationMax int64   `json:"durationMaxMs"`
	TimedRuns   int64   `json:"timedRuns"`
}

// maxTrackedDurationMs bounds the duration histogram (24h)
const maxTrackedDurationMs = 24 * 60 * 60 * 1000

// Summarize computes Stats over records (newest first). Duration
// percentiles only consider records that carry a duration.
func Summarize(records []Record) Stats {
	// 1ms to 24h, 3 significant digits
	hist := hdrhistogram.New(1, maxTrackedDurationMs, 3)

	stats := Stats{Runs: len(records)}
	for i, r := range records {
		if i == 0 {
			stats.LastRun = r.Timestamp
		}
		stats.TotalTests += r.Total
		stats.PassedTests += r.Passed
		stats.FailedTests += r.Failed
		if r.Failed > 0 {
			stats.FailingRuns++
		}
		if r.DurationMs > 0 {
			d := r.DurationMs
			if d > maxTrackedDurationMs {
				d = maxTrackedDurationMs
			}
			_ = hist.RecordValue(d)
		}
	}

	if stats.TotalTests > 0 {
		stats.PassRate = float64(stats.PassedTests) * 100 / float64(stats.TotalTests)
	}

	stats.TimedRuns = hist.TotalCount()
	if stats.TimedRuns > 0 {
		stats.DurationP50 = hist.ValueAtQuantile(50)
		stats.DurationP95 = hist.ValueAtQuantile(95)
		stats.DurationP99 = hist.ValueAtQuantile(99)
		stats.DurationMax = hist.Max()
	}

	return stats
}
