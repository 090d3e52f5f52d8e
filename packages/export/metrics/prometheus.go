package metrics

import (
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/hitboard/packages/history"
)

// ContentType is the Prometheus text exposition content type
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// PrometheusExporter renders ledger statistics in the Prometheus text format
type PrometheusExporter struct {
	namespace string
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithNamespace sets the metric name prefix
func WithNamespace(ns string) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.namespace = ns
	}
}

// NewPrometheusExporter creates a new exporter
func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{namespace: "hitboard"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Export writes stats to w
func (p *PrometheusExporter) Export(w io.Writer, stats history.Stats) error {
	ew := &errWriter{w: w}

	p.metric(ew, "runs_total", "counter", "Recorded test runs", float64(stats.Runs))
	p.metric(ew, "runs_failing_total", "counter", "Recorded runs with at least one failed test", float64(stats.FailingRuns))
	p.metric(ew, "tests_total", "counter", "Tests executed across all runs", float64(stats.TotalTests))
	p.metric(ew, "tests_passed_total", "counter", "Passed tests across all runs", float64(stats.PassedTests))
	p.metric(ew, "tests_failed_total", "counter", "Failed tests across all runs", float64(stats.FailedTests))
	p.metric(ew, "pass_rate_percent", "gauge", "Percent of tests passed", stats.PassRate)

	name := p.name("run_duration_ms")
	ew.printf("# HELP %s Run duration in milliseconds\n", name)
	ew.printf("# TYPE %s summary\n", name)
	if stats.TimedRuns > 0 {
		ew.printf("%s{quantile=\"0.5\"} %d\n", name, stats.DurationP50)
		ew.printf("%s{quantile=\"0.95\"} %d\n", name, stats.DurationP95)
		ew.printf("%s{quantile=\"0.99\"} %d\n", name, stats.DurationP99)
		ew.printf("%s{quantile=\"1\"} %d\n", name, stats.DurationMax)
	}
	ew.printf("%s_count %d\n", name, stats.TimedRuns)

	return ew.err
}

func (p *PrometheusExporter) metric(ew *errWriter, suffix, kind, help string, value float64) {
	name := p.name(suffix)
	ew.printf("# HELP %s %s\n", name, help)
	ew.printf("# TYPE %s %s\n", name, kind)
	ew.printf("%s %g\n\n", name, value)
}

func (p *PrometheusExporter) name(suffix string) string {
	if p.namespace == "" {
		return suffix
	}
	return p.namespace + "_" + suffix
}

// errWriter keeps the first write error
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
