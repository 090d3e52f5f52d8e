package report

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultPrefix is the report name prefix used when none is configured
	DefaultPrefix = "newman-report"

	// Extension is the file extension of rendered reports
	Extension = ".html"

	// maxSequence is the highest per-second sequence number before the
	// namer moves on to the following second
	maxSequence = 999

	stampLayout = "2006-01-02_15-04-05"
)

// Namer generates unique, chronologically sortable report file names.
// It is safe for concurrent use.
type Namer struct {
	prefix string
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
	seq  int
}

// NamerOption is a functional option for Namer
type NamerOption func(*Namer)

// WithClock overrides the clock used to stamp names
func WithClock(now func() time.Time) NamerOption {
	return func(n *Namer) {
		n.now = now
	}
}

// NewNamer creates a namer. An empty prefix falls back to DefaultPrefix.
func NewNamer(prefix string, opts ...NamerOption) *Namer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	n := &Namer{
		prefix: prefix,
		now:    time.Now,
		seq:    -1,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Next returns a new report name. Two calls within the same second get
// increasing sequence numbers; a clock that goes backwards never yields a
// name that sorts before one already issued.
func (n *Namer) Next() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	stamp := n.now().UTC().Truncate(time.Second)

	switch {
	case stamp.After(n.last):
		n.last = stamp
		n.seq = 0
	case n.seq < maxSequence:
		n.seq++
	default:
		n.last = n.last.Add(time.Second)
		n.seq = 0
	}

	return fmt.Sprintf("%s-%s-%03d%s", n.prefix, n.last.Format(stampLayout), n.seq, Extension)
}

// URL returns the public path under which a report is served
func URL(name string) string {
	return "/reports/" + name
}
