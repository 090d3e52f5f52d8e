// Package orchestrator drives a single test run from configuration to
// ledger entry.
//
// A run moves through Resolving, Invoking, Summarizing and Persisting and
// ends Completed or Errored. The engine is invoked exactly once per run and
// the record is durably appended before Run returns. Notifiers (Slack,
// Teams, browser, report publishing) run afterwards in the background and
// never influence the outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
	"github.com/abdul-hamid-achik/hitboard/packages/engine"
	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/notify"
	"github.com/abdul-hamid-achik/hitboard/packages/report"
	"github.com/abdul-hamid-achik/hitboard/packages/source"
)

// DefaultNotifyTimeout bounds the background notifiers of one run
const DefaultNotifyTimeout = 30 * time.Second

// Outcome is the result of a completed run
type Outcome struct {
	RunID      string
	Record     *history.Record
	ReportPath string
	State      State

	// PersistErr is set when the run completed but the ledger append
	// failed. The run itself still counts as completed.
	PersistErr error
}

// Orchestrator runs tests end to end
type Orchestrator struct {
	resolver   source.Resolver
	engine     engine.Engine
	ledger     history.Ledger
	namer      *report.Namer
	reportsDir string
	report     config.ReportConfig

	notifiers     []notify.Notifier
	notifyTimeout time.Duration

	now    func() time.Time
	logger *slog.Logger

	// wg counts in-flight runs and background notifiers
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

// ErrShuttingDown is the cause of a run refused after Wait was called
var ErrShuttingDown = errors.New("shutting down, run refused")

// Option is a functional option for Orchestrator
type Option func(*Orchestrator)

// WithNamer sets the report namer
func WithNamer(n *report.Namer) Option {
	return func(o *Orchestrator) {
		o.namer = n
	}
}

// WithReportConfig sets the report presentation passed to the engine
func WithReportConfig(cfg config.ReportConfig) Option {
	return func(o *Orchestrator) {
		o.report = cfg
	}
}

// WithNotifier adds a notifier that runs after each completed run
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifiers = append(o.notifiers, n)
		}
	}
}

// WithNotifyTimeout bounds the notifiers of one run
func WithNotifyTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.notifyTimeout = d
	}
}

// WithClock sets the clock used for record timestamps
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an orchestrator. Reports are written to reportsDir.
func New(resolver source.Resolver, eng engine.Engine, ledger history.Ledger, reportsDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver:      resolver,
		engine:        eng,
		ledger:        ledger,
		reportsDir:    reportsDir,
		notifyTimeout: DefaultNotifyTimeout,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.namer == nil {
		o.namer = report.NewNamer(o.report.Prefix)
	}
	return o
}

// ReportsDir returns the directory reports are written to
func (o *Orchestrator) ReportsDir() string {
	return o.reportsDir
}

// Ledger returns the ledger runs are recorded in
func (o *Orchestrator) Ledger() history.Ledger {
	return o.ledger
}

// run is the state of one in-flight run
type run struct {
	id         string
	reportName string
	state      State
	logger     *slog.Logger
}

func (r *run) enter(s State) {
	r.logger.Debug("run state", "from", r.state.String(), "to", s.String())
	r.state = s
}

func (r *run) fail(err error) error {
	failed := r.state
	r.enter(StateErrored)
	r.logger.Error("run failed", "state", failed.String(), "error", err)
	return &RunError{State: failed, ReportName: r.reportName, Err: err}
}

// Run executes one test run. Errors are *RunError wrapping the typed
// cause: source.ConfigLoadError, source.ConfigFetchError,
// engine.ExecutionError, engine.SummaryMissingError or
// report.FilesystemError.
func (o *Orchestrator) Run(ctx context.Context) (*Outcome, error) {
	if !o.begin() {
		return nil, &RunError{State: StateIdle, Err: ErrShuttingDown}
	}
	defer o.wg.Done()

	r := &run{id: uuid.NewString(), state: StateIdle}
	r.reportName = o.namer.Next()
	r.logger = o.logger.With("run_id", r.id, "report", r.reportName)
	reportPath := report.Path(o.reportsDir, r.reportName)

	r.enter(StateResolving)
	pair, err := o.resolver.Resolve(ctx)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(StateInvoking)
	if _, err := report.EnsureDir(o.reportsDir); err != nil {
		return nil, r.fail(err)
	}
	started := o.now()
	summary, err := o.engine.Run(ctx, engine.Invocation{
		Collection:    pair.Collection,
		Environment:   pair.Environment,
		ReportPath:    reportPath,
		Title:         o.report.Title,
		BrowserTitle:  o.report.BrowserTitle,
		DarkTheme:     o.report.GetDarkTheme(),
		ShowOnlyFails: o.report.ShowOnlyFails,
	})
	elapsed := o.now().Sub(started)
	if err != nil {
		var execErr *engine.ExecutionError
		var missing *engine.SummaryMissingError
		if !errors.As(err, &execErr) && !errors.As(err, &missing) {
			err = &engine.ExecutionError{Err: err}
		}
		return nil, r.fail(err)
	}

	r.enter(StateSummarizing)
	if summary == nil {
		return nil, r.fail(&engine.SummaryMissingError{Reason: "engine returned no summary"})
	}
	if err := summary.Validate(); err != nil {
		return nil, r.fail(&engine.SummaryMissingError{Reason: err.Error()})
	}
	rec, err := history.NewRecord(o.now(), r.reportName, report.URL(r.reportName), summary.Total, summary.Failed)
	if err != nil {
		return nil, r.fail(&engine.SummaryMissingError{Reason: err.Error()})
	}
	rec.ID = r.id
	rec.Source = o.resolver.Mode()
	rec.DurationMs = summary.Duration.Milliseconds()
	if rec.DurationMs <= 0 {
		rec.DurationMs = elapsed.Milliseconds()
	}

	r.enter(StatePersisting)
	out := &Outcome{RunID: r.id, Record: rec, ReportPath: reportPath}
	// The engine already ran; a client that went away must not cost the record.
	if err := o.ledger.Append(context.WithoutCancel(ctx), *rec); err != nil {
		var perr *history.PersistenceError
		if !errors.As(err, &perr) {
			perr = &history.PersistenceError{Op: "append", Err: err}
		}
		out.PersistErr = perr
		r.logger.Warn("run completed but was not recorded", "error", perr)
	}

	r.enter(StateCompleted)
	out.State = StateCompleted
	r.logger.Info("run completed",
		"total", rec.Total,
		"passed", rec.Passed,
		"failed", rec.Failed,
		"duration_ms", rec.DurationMs,
	)

	o.dispatch(r, notify.NewRunSummary(rec, reportPath))
	return out, nil
}

// dispatch runs the notifiers in the background
func (o *Orchestrator) dispatch(r *run, summary *notify.RunSummary) {
	if len(o.notifiers) == 0 {
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), o.notifyTimeout)
		defer cancel()

		for _, n := range o.notifiers {
			if err := n.Notify(ctx, summary); err != nil {
				r.logger.Warn("notifier failed", "notifier", n.Name(), "error", err)
				continue
			}
			r.logger.Debug("notifier done", "notifier", n.Name())
		}
	}()
}

// begin registers a run unless the orchestrator is draining
func (o *Orchestrator) begin() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.draining {
		return false
	}
	o.wg.Add(1)
	return true
}

// Wait refuses new runs, then blocks until in-flight runs and background
// notifiers have finished or ctx is done. An error means work is still
// running and may yet touch the ledger.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	o.draining = true
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for runs and notifiers: %w", ctx.Err())
	}
}
