// Package notify provides post-run notifications for hitboard runs.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/hitboard/packages/history"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when tests fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when tests pass
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications when tests recover from failure
	NotifyRecovery NotifyOn = "recovery"
	// NotifyNever disables policy-driven notifications
	NotifyNever NotifyOn = "never"
)

// ParseNotifyOn parses a notify-on policy name
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(strings.ToLower(strings.TrimSpace(s))); on {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery, NotifyNever:
		return on, nil
	case "":
		return NotifyFailure, nil
	default:
		return "", fmt.Errorf("unknown notify policy %q (use always, failure, success, recovery or never)", s)
	}
}

// RunSummary represents the summary of a test run for notifications
type RunSummary struct {
	ReportName  string        `json:"report_name"`
	ReportURL   string        `json:"report_url"`
	ReportPath  string        `json:"-"`
	TotalTests  int           `json:"total_tests"`
	PassedTests int           `json:"passed_tests"`
	FailedTests int           `json:"failed_tests"`
	Duration    time.Duration `json:"duration"`
	Source      string        `json:"source,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	IsRecovery  bool          `json:"is_recovery,omitempty"`
}

// NewRunSummary builds a summary from a persisted run record
func NewRunSummary(rec *history.Record, reportPath string) *RunSummary {
	s := &RunSummary{
		ReportName:  rec.ReportName,
		ReportURL:   rec.ReportURL,
		ReportPath:  reportPath,
		TotalTests:  rec.Total,
		PassedTests: rec.Passed,
		FailedTests: rec.Failed,
		Duration:    time.Duration(rec.DurationMs) * time.Millisecond,
		Source:      rec.Source,
	}
	if t, err := rec.Time(); err == nil {
		s.Timestamp = t
	}
	return s
}

// Notifier is the interface for notification services
type Notifier interface {
	// Notify sends a notification about a finished run
	Notify(ctx context.Context, summary *RunSummary) error

	// Name returns the name of the notifier
	Name() string
}

// Manager fans a run out to several notifiers according to a NotifyOn
// policy. A Manager is itself a Notifier.
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn

	mu        sync.Mutex
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true, // Assume success initially
	}
}

// SetLastState records the outcome of the run before this process
// started, so a recovery is detected across restarts.
func (m *Manager) SetLastState(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastState = success
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Len returns the number of registered notifiers
func (m *Manager) Len() int {
	return len(m.notifiers)
}

// Name implements Notifier
func (m *Manager) Name() string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return "manager(" + strings.Join(names, ",") + ")"
}

// ShouldNotify applies the policy to a run and records its outcome for
// recovery detection.
func (m *Manager) ShouldNotify(summary *RunSummary) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	shouldNotify := false
	currentSuccess := summary.FailedTests == 0

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = summary.FailedTests > 0
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		// Also notify on failure
		if summary.FailedTests > 0 {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess
	return shouldNotify
}

// Notify sends notifications based on the configured policy. Every
// notifier is attempted; failures are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	if !m.ShouldNotify(summary) {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
