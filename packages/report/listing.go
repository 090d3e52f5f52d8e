package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilesystemError reports a failure to read report storage
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// EnsureDir creates the reports directory if it does not exist yet
func EnsureDir(dir string) (created bool, err error) {
	if _, err := os.Stat(dir); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, &FilesystemError{Path: dir, Err: err}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, &FilesystemError{Path: dir, Err: err}
	}
	return true, nil
}

// List returns the names of all report artifacts in dir, newest first.
// Entries without the report extension and subdirectories are skipped.
// A missing directory yields an empty list.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, &FilesystemError{Path: dir, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsReport(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// IsReport reports whether name carries the report extension
func IsReport(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Extension)
}

// Path joins a report name onto the reports directory
func Path(dir, name string) string {
	return filepath.Join(dir, name)
}
