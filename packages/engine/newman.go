package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCommand is the newman executable looked up on PATH
	DefaultCommand = "newman"

	// outputTailBytes is how much engine output is kept for error reports
	outputTailBytes = 4096

	waitDelay = 2 * time.Second
)

// Newman runs collections with the newman CLI and its htmlextra reporter.
// The collection and environment are written to a private temp directory
// for each run, and the summary is read back from newman's JSON reporter.
type Newman struct {
	command   []string
	extraArgs []string
	timeout   time.Duration
	tempDir   string
	logger    *slog.Logger
}

// NewmanOption is a functional option for Newman
type NewmanOption func(*Newman)

// WithCommand sets the newman command line, e.g. "npx newman"
func WithCommand(command string) NewmanOption {
	return func(n *Newman) {
		if fields := strings.Fields(command); len(fields) > 0 {
			n.command = fields
		}
	}
}

// WithExtraArgs appends arguments to every newman invocation
func WithExtraArgs(args ...string) NewmanOption {
	return func(n *Newman) {
		n.extraArgs = append(n.extraArgs, args...)
	}
}

// WithRunTimeout kills newman if a run takes longer than d
func WithRunTimeout(d time.Duration) NewmanOption {
	return func(n *Newman) {
		n.timeout = d
	}
}

// WithTempDir sets the parent directory for per-run scratch files
func WithTempDir(dir string) NewmanOption {
	return func(n *Newman) {
		n.tempDir = dir
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) NewmanOption {
	return func(n *Newman) {
		n.logger = l
	}
}

// NewNewman creates a newman engine
func NewNewman(opts ...NewmanOption) *Newman {
	n := &Newman{
		command: []string{DefaultCommand},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run implements Engine
func (n *Newman) Run(ctx context.Context, inv Invocation) (*Summary, error) {
	if inv.ReportPath == "" {
		return nil, &ExecutionError{Err: errors.New("no report path")}
	}

	workDir, err := os.MkdirTemp(n.tempDir, "hitboard-run-*")
	if err != nil {
		return nil, &ExecutionError{Err: fmt.Errorf("create scratch dir: %w", err)}
	}
	defer os.RemoveAll(workDir)

	collectionPath := filepath.Join(workDir, "collection.json")
	environmentPath := filepath.Join(workDir, "environment.json")
	summaryPath := filepath.Join(workDir, "summary.json")

	if err := os.WriteFile(collectionPath, inv.Collection, 0o600); err != nil {
		return nil, &ExecutionError{Err: fmt.Errorf("write collection: %w", err)}
	}
	if err := os.WriteFile(environmentPath, inv.Environment, 0o600); err != nil {
		return nil, &ExecutionError{Err: fmt.Errorf("write environment: %w", err)}
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	args := append(append([]string{}, n.command[1:]...), n.args(inv, collectionPath, environmentPath, summaryPath)...)
	cmd := exec.CommandContext(ctx, n.command[0], args...)
	cmd.Env = os.Environ()
	output := &tailWriter{limit: outputTailBytes}
	cmd.Stdout = output
	cmd.Stderr = output
	// newman may leave node children holding the output pipes after a kill
	cmd.WaitDelay = waitDelay

	n.logger.Debug("starting newman", "command", n.command[0], "report", inv.ReportPath)
	start := time.Now()

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return nil, &ExecutionError{Err: err, Output: output.String()}
	}

	n.logger.Debug("newman finished", "duration", time.Since(start))

	data, err := os.ReadFile(summaryPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SummaryMissingError{Reason: "engine wrote no summary"}
		}
		return nil, &SummaryMissingError{Reason: err.Error()}
	}

	summary, err := ParseSummary(data)
	if err != nil {
		return nil, err
	}
	if summary.Duration == 0 {
		summary.Duration = time.Since(start)
	}
	return summary, nil
}

// args builds the newman command line. --suppress-exit-code keeps test
// failures from looking like an engine failure.
func (n *Newman) args(inv Invocation, collection, environment, summary string) []string {
	args := []string{
		"run", collection,
		"--environment", environment,
		"--reporters", "cli,htmlextra,json",
		"--reporter-json-export", summary,
		"--reporter-htmlextra-export", inv.ReportPath,
		"--suppress-exit-code",
	}
	if inv.Title != "" {
		args = append(args, "--reporter-htmlextra-title", inv.Title)
	}
	if inv.BrowserTitle != "" {
		args = append(args, "--reporter-htmlextra-browserTitle", inv.BrowserTitle)
	}
	if inv.DarkTheme {
		args = append(args, "--reporter-htmlextra-darkTheme")
	}
	if inv.ShowOnlyFails {
		args = append(args, "--reporter-htmlextra-showOnlyFails")
	}
	return append(args, n.extraArgs...)
}

// tailWriter keeps the last limit bytes written to it
type tailWriter struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	if over := len(w.buf) - w.limit; over > 0 {
		w.buf = append(w.buf[:0], w.buf[over:]...)
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}
