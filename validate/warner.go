package validate

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Warner accumulates validation problems per file so that a batch of
// files can be checked completely before anything is reported. Errors
// make the batch fail; warnings are informational.
type Warner struct {
	mu       sync.Mutex
	errors   map[string][]string
	warnings map[string][]string
}

// NewWarner creates an empty Warner.
func NewWarner() *Warner {
	return &Warner{
		errors:   make(map[string][]string),
		warnings: make(map[string][]string),
	}
}

// Errorf records an error against file.
func (w *Warner) Errorf(file, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errors[file] = append(w.errors[file], fmt.Sprintf(format, args...))
}

// Warnf records a warning against file.
func (w *Warner) Warnf(file, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warnings[file] = append(w.warnings[file], fmt.Sprintf(format, args...))
}

// HasErrors reports whether any errors have been recorded.
func (w *Warner) HasErrors() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.errors) > 0
}

// Errors returns the recorded errors for file.
func (w *Warner) Errors(file string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.errors[file]...)
}

// Warnings returns the recorded warnings for file.
func (w *Warner) Warnings(file string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.warnings[file]...)
}

// Report logs every accumulated problem, files in sorted order, and
// returns an error summarizing the count of files with errors. A
// Warner holding only warnings returns nil.
func (w *Warner) Report(logger *slog.Logger) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	files := make(map[string]struct{}, len(w.errors)+len(w.warnings))
	for f := range w.errors {
		files[f] = struct{}{}
	}
	for f := range w.warnings {
		files[f] = struct{}{}
	}

	ordered := make([]string, 0, len(files))
	for f := range files {
		ordered = append(ordered, f)
	}
	sort.Strings(ordered)

	for _, f := range ordered {
		for _, msg := range w.errors[f] {
			logger.Error(msg, "file", f)
		}
		for _, msg := range w.warnings[f] {
			logger.Warn(msg, "file", f)
		}
	}

	if len(w.errors) > 0 {
		return fmt.Errorf("validate: %d file(s) failed validation", len(w.errors))
	}
	return nil
}
