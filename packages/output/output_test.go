package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/orchestrator"
)

func sampleOutcome() *orchestrator.Outcome {
	return &orchestrator.Outcome{
		RunID:      "run-1",
		ReportPath: "reports/r.html",
		State:      orchestrator.StateCompleted,
		Record: &history.Record{
			Timestamp:  "2026-03-14T09:26:53.000Z",
			ReportName: "r.html",
			ReportURL:  "/reports/r.html",
			Passed:     8,
			Failed:     2,
			Total:      10,
			DurationMs: 1234,
		},
	}
}

func TestConsole_FormatRun(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	out := sampleOutcome()
	out.PersistErr = errors.New("disk full")
	require.NoError(t, f.FormatRun(out))

	s := buf.String()
	assert.Contains(t, s, "Report: r.html")
	assert.Contains(t, s, "8 passed")
	assert.Contains(t, s, "2 failed")
	assert.Contains(t, s, "10 total")
	assert.Contains(t, s, "1234ms")
	assert.Contains(t, s, "/reports/r.html")
	assert.Contains(t, s, "disk full")
}

func TestConsole_FormatHistory(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	require.NoError(t, f.FormatHistory(nil))
	assert.Contains(t, buf.String(), "No runs recorded yet.")

	buf.Reset()
	require.NoError(t, f.FormatHistory([]history.Record{*sampleOutcome().Record}))
	assert.Contains(t, buf.String(), "TIMESTAMP")
	assert.Contains(t, buf.String(), "r.html")
}

func TestConsole_FormatStatsAndReports(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	require.NoError(t, f.FormatStats(history.Stats{Runs: 2, TotalTests: 4, PassedTests: 3, FailedTests: 1, PassRate: 75}))
	assert.Contains(t, buf.String(), "Pass rate: 75.0%")

	buf.Reset()
	require.NoError(t, f.FormatReports([]string{"b.html", "a.html"}))
	assert.Equal(t, "b.html\na.html\n", buf.String())
}

func TestJSON_FormatRun(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	require.NoError(t, f.FormatRun(sampleOutcome()))

	var got JSONRun
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 8, got.Record.Passed)
	assert.Empty(t, got.Warning)
}

func TestJSON_EmptyListsAreArrays(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(JSONWithWriter(&buf))

	require.NoError(t, f.FormatHistory(nil))
	assert.JSONEq(t, `[]`, buf.String())

	buf.Reset()
	require.NoError(t, f.FormatReports(nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestNew(t *testing.T) {
	f, err := New("json")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	f, err = New("")
	require.NoError(t, err)
	assert.IsType(t, &ConsoleFormatter{}, f)

	_, err = New("tap")
	assert.Error(t, err)
}
