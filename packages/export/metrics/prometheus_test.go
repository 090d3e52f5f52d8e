package metrics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitboard/packages/history"
)

func TestPrometheusExporter_Export(t *testing.T) {
	stats := history.Stats{
		Runs:        4,
		FailingRuns: 1,
		TotalTests:  40,
		PassedTests: 38,
		FailedTests: 2,
		PassRate:    95,
		DurationP50: 1200,
		DurationP95: 3000,
		DurationP99: 3000,
		DurationMax: 3000,
		TimedRuns:   3,
	}

	var buf bytes.Buffer
	require.NoError(t, NewPrometheusExporter().Export(&buf, stats))

	out := buf.String()
	assert.Contains(t, out, "# TYPE hitboard_runs_total counter\n")
	assert.Contains(t, out, "hitboard_runs_total 4\n")
	assert.Contains(t, out, "hitboard_tests_failed_total 2\n")
	assert.Contains(t, out, "hitboard_pass_rate_percent 95\n")
	assert.Contains(t, out, "hitboard_run_duration_ms{quantile=\"0.95\"} 3000\n")
	assert.Contains(t, out, "hitboard_run_duration_ms_count 3\n")
}

func TestPrometheusExporter_NoTimedRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPrometheusExporter(WithNamespace("ci")).Export(&buf, history.Stats{}))

	out := buf.String()
	assert.Contains(t, out, "ci_runs_total 0\n")
	assert.NotContains(t, out, "quantile")
	assert.Contains(t, out, "ci_run_duration_ms_count 0\n")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestPrometheusExporter_WriteError(t *testing.T) {
	err := NewPrometheusExporter().Export(failingWriter{}, history.Stats{})
	assert.EqualError(t, err, "closed")
}
