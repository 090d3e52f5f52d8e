package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitboard/packages/core/config"
	"github.com/abdul-hamid-achik/hitboard/packages/engine"
	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/notify"
	"github.com/abdul-hamid-achik/hitboard/packages/report"
	"github.com/abdul-hamid-achik/hitboard/packages/source"
)

type fakeResolver struct {
	err error
}

func (f *fakeResolver) Resolve(context.Context) (*source.Pair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &source.Pair{
		Collection:  json.RawMessage(`{"info":{"name":"c"},"item":[]}`),
		Environment: json.RawMessage(`{"values":[]}`),
	}, nil
}

func (f *fakeResolver) Mode() string { return config.ModeLocal }

type fakeEngine struct {
	summary *engine.Summary
	err     error

	calls atomic.Int32
	mu    sync.Mutex
	last  engine.Invocation
}

func (f *fakeEngine) Run(_ context.Context, inv engine.Invocation) (*engine.Summary, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = inv
	f.mu.Unlock()
	if err := os.WriteFile(inv.ReportPath, []byte("<html></html>"), 0o644); err != nil {
		return nil, err
	}
	return f.summary, f.err
}

type failingLedger struct{}

func (failingLedger) Load(context.Context) ([]history.Record, error) { return []history.Record{}, nil }
func (failingLedger) Append(context.Context, history.Record) error   { return errors.New("disk full") }
func (failingLedger) Close() error                                   { return nil }

type chanNotifier struct {
	got chan *notify.RunSummary
}

func (c *chanNotifier) Name() string { return "chan" }

func (c *chanNotifier) Notify(_ context.Context, s *notify.RunSummary) error {
	c.got <- s
	return errors.New("notifier failures are only logged")
}

func setup(t *testing.T, eng engine.Engine, opts ...Option) (*Orchestrator, *history.FileLedger, string) {
	t.Helper()
	dir := t.TempDir()
	reportsDir := filepath.Join(dir, "reports")
	ledger := history.NewFileLedger(filepath.Join(dir, "run-history.json"))
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	opts = append([]Option{
		WithNamer(report.NewNamer("", report.WithClock(func() time.Time { return at }))),
		WithClock(func() time.Time { return at }),
	}, opts...)
	return New(&fakeResolver{}, eng, ledger, reportsDir, opts...), ledger, reportsDir
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "persisting", StatePersisting.String())
	assert.Equal(t, "errored", StateErrored.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, StateCompleted.Terminal())
	assert.False(t, StateInvoking.Terminal())
}

func TestRun_CompletesAndRecords(t *testing.T) {
	eng := &fakeEngine{summary: &engine.Summary{Total: 10, Failed: 2, Duration: 1500 * time.Millisecond}}
	o, ledger, reportsDir := setup(t, eng, WithReportConfig(config.ReportConfig{Title: "API Test Dashboard"}))

	out, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, out.State)
	assert.NoError(t, out.PersistErr)
	assert.Equal(t, 8, out.Record.Passed)
	assert.Equal(t, 2, out.Record.Failed)
	assert.Equal(t, 10, out.Record.Total)
	assert.Equal(t, "newman-report-2026-03-14_09-26-53-000.html", out.Record.ReportName)
	assert.Equal(t, "/reports/newman-report-2026-03-14_09-26-53-000.html", out.Record.ReportURL)
	assert.Equal(t, "2026-03-14T09:26:53.000Z", out.Record.Timestamp)
	assert.Equal(t, int64(1500), out.Record.DurationMs)
	assert.Equal(t, config.ModeLocal, out.Record.Source)
	assert.Equal(t, out.RunID, out.Record.ID)
	assert.Equal(t, filepath.Join(reportsDir, out.Record.ReportName), out.ReportPath)

	assert.Equal(t, int32(1), eng.calls.Load())
	assert.Equal(t, "API Test Dashboard", eng.last.Title)
	assert.True(t, eng.last.DarkTheme)

	records, err := ledger.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, *out.Record, records[0])
}

func TestRun_ResolveFailure(t *testing.T) {
	eng := &fakeEngine{summary: &engine.Summary{Total: 1}}
	o, ledger, _ := setup(t, eng)
	o.resolver = &fakeResolver{err: &source.ConfigLoadError{Kind: source.KindCollection, Path: "missing.json", Err: os.ErrNotExist}}

	_, err := o.Run(context.Background())

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateResolving, runErr.State)
	var loadErr *source.ConfigLoadError
	assert.ErrorAs(t, err, &loadErr)
	assert.Equal(t, int32(0), eng.calls.Load())

	records, _ := ledger.Load(context.Background())
	assert.Empty(t, records)
}

func TestRun_EngineFailure(t *testing.T) {
	eng := &fakeEngine{err: errors.New("newman: command not found")}
	o, ledger, _ := setup(t, eng)

	_, err := o.Run(context.Background())

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateInvoking, runErr.State)
	var execErr *engine.ExecutionError
	assert.ErrorAs(t, err, &execErr)
	assert.NotEmpty(t, err.Error())

	records, _ := ledger.Load(context.Background())
	assert.Empty(t, records)
}

func TestRun_MissingSummary(t *testing.T) {
	eng := &fakeEngine{}
	o, ledger, reportsDir := setup(t, eng)

	_, err := o.Run(context.Background())

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateSummarizing, runErr.State)
	var missing *engine.SummaryMissingError
	assert.ErrorAs(t, err, &missing)

	// The report the engine wrote stays on disk.
	assert.FileExists(t, filepath.Join(reportsDir, runErr.ReportName))

	records, _ := ledger.Load(context.Background())
	assert.Empty(t, records)
}

func TestRun_MalformedSummary(t *testing.T) {
	eng := &fakeEngine{summary: &engine.Summary{Total: 1, Failed: 3}}
	o, _, _ := setup(t, eng)

	_, err := o.Run(context.Background())
	var missing *engine.SummaryMissingError
	assert.ErrorAs(t, err, &missing)
}

func TestRun_PersistFailureIsNotFatal(t *testing.T) {
	eng := &fakeEngine{summary: &engine.Summary{Total: 3, Failed: 0}}
	o, _, _ := setup(t, eng)
	o.ledger = failingLedger{}

	out, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, out.State)
	var perr *history.PersistenceError
	require.ErrorAs(t, out.PersistErr, &perr)
	assert.Contains(t, perr.Error(), "disk full")
	assert.Equal(t, 3, out.Record.Passed)
}

func TestRun_ConcurrentRunsGetDistinctReports(t *testing.T) {
	eng := &fakeEngine{summary: &engine.Summary{Total: 2, Failed: 1}}
	o, ledger, _ := setup(t, eng)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Run(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := ledger.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, n)

	names := map[string]bool{}
	for _, r := range records {
		names[r.ReportName] = true
	}
	assert.Len(t, names, n)
}

func TestRun_NotifiersRunAfterCompletion(t *testing.T) {
	eng := &fakeEngine{summary: &engine.Summary{Total: 4, Failed: 1}}
	n := &chanNotifier{got: make(chan *notify.RunSummary, 1)}
	o, _, _ := setup(t, eng, WithNotifier(n))

	out, err := o.Run(context.Background())
	require.NoError(t, err)

	select {
	case s := <-n.got:
		assert.Equal(t, out.Record.ReportName, s.ReportName)
		assert.Equal(t, out.ReportPath, s.ReportPath)
		assert.Equal(t, 1, s.FailedTests)
	case <-time.After(5 * time.Second):
		t.Fatal("notifier was not called")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, o.Wait(ctx))
}

type blockingEngine struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingEngine) Run(_ context.Context, inv engine.Invocation) (*engine.Summary, error) {
	close(b.started)
	<-b.release
	if err := os.WriteFile(inv.ReportPath, []byte("<html></html>"), 0o644); err != nil {
		return nil, err
	}
	return &engine.Summary{Total: 2}, nil
}

func TestWait_CoversInFlightRuns(t *testing.T) {
	eng := &blockingEngine{started: make(chan struct{}), release: make(chan struct{})}
	o, ledger, _ := setup(t, eng)

	result := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background())
		result <- err
	}()
	<-eng.started

	short, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, o.Wait(short))

	_, err := o.Run(context.Background())
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, StateIdle, runErr.State)
	assert.ErrorIs(t, err, ErrShuttingDown)

	close(eng.release)
	ctx, cancelWait := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelWait()
	require.NoError(t, o.Wait(ctx))
	require.NoError(t, <-result)

	records, err := ledger.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWait_NoNotifiers(t *testing.T) {
	o, _, _ := setup(t, &fakeEngine{summary: &engine.Summary{}})
	assert.NoError(t, o.Wait(context.Background()))
}
