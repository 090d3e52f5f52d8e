package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileLedger stores the ledger as one JSON array in a file. Appends hold
// a mutex across the whole read-modify-write cycle and replace the file by
// rename, so the file is always either absent or a complete array.
type FileLedger struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// FileOption is a functional option for FileLedger
type FileOption func(*FileLedger)

// WithFileLogger sets the logger
func WithFileLogger(l *slog.Logger) FileOption {
	return func(f *FileLedger) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFileLedger creates a ledger backed by the JSON file at path
func NewFileLedger(path string, opts ...FileOption) *FileLedger {
	f := &FileLedger{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the backing file
func (f *FileLedger) Path() string {
	return f.path
}

// Load returns the ledger, newest first. A missing file is an empty
// ledger; an unreadable or corrupt file is logged and also treated as
// empty. Load never returns an error.
func (f *FileLedger) Load(ctx context.Context) ([]Record, error) {
	records, err := f.read()
	if err != nil {
		f.logger.Warn("failed to read run history", "path", f.path, "error", err)
		return []Record{}, nil
	}
	return records, nil
}

// Append inserts rec at the front of the ledger and rewrites the file
func (f *FileLedger) Append(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return &PersistenceError{Op: "append", Path: f.path, Err: err}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.read()
	if err != nil && !errors.Is(err, errCorruptHistory) {
		return &PersistenceError{Op: "append", Path: f.path, Err: err}
	}
	if err != nil {
		// Keep the corrupt file around instead of overwriting it.
		aside := fmt.Sprintf("%s.corrupt-%d", f.path, f.now().Unix())
		f.logger.Warn("run history corrupt, moving it aside", "path", f.path, "moved_to", aside, "error", err)
		if renameErr := os.Rename(f.path, aside); renameErr != nil {
			return &PersistenceError{Op: "append", Path: f.path, Err: fmt.Errorf("move corrupt history aside: %w", renameErr)}
		}
		records = nil
	}

	updated := make([]Record, 0, len(records)+1)
	updated = append(updated, rec)
	updated = append(updated, records...)

	if err := f.write(updated); err != nil {
		return &PersistenceError{Op: "append", Path: f.path, Err: err}
	}

	f.logger.Debug("run history updated", "path", f.path, "records", len(updated))
	return nil
}

// Close implements Ledger
func (f *FileLedger) Close() error {
	return nil
}

// errCorruptHistory marks a history file that exists but does not parse
var errCorruptHistory = errors.New("parse run history")

func (f *FileLedger) read() ([]Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptHistory, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (f *FileLedger) write(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run history: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace run history: %w", err)
	}
	return nil
}
