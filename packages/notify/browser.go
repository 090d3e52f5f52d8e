package notify

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
)

// OpenFunc opens target (a file path or URL) in a viewer
type OpenFunc func(ctx context.Context, target string) error

// BrowserNotifier opens the rendered report once a run completes
type BrowserNotifier struct {
	open OpenFunc
}

// BrowserOption is a functional option for BrowserNotifier
type BrowserOption func(*BrowserNotifier)

// WithOpener replaces the platform opener
func WithOpener(fn OpenFunc) BrowserOption {
	return func(b *BrowserNotifier) {
		b.open = fn
	}
}

// NewBrowserNotifier creates a notifier that opens reports locally
func NewBrowserNotifier(opts ...BrowserOption) *BrowserNotifier {
	b := &BrowserNotifier{open: OpenInBrowser}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the name of the notifier
func (b *BrowserNotifier) Name() string {
	return "browser"
}

// Notify opens the report file of the run
func (b *BrowserNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	target := summary.ReportPath
	if target == "" {
		target = summary.ReportURL
	}
	if target == "" {
		return errors.New("run has no report to open")
	}
	return b.open(ctx, target)
}

// OpenInBrowser starts the platform viewer for target without waiting
// for it to exit. The viewer outlives ctx.
func OpenInBrowser(_ context.Context, target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
