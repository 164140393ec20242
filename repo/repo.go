// Package repo wraps the caom2repo command-line tool, which gets, puts,
// updates and removes CAOM-2 observation records in the metadata
// repository.
//
// The wrapper adds no behaviour of its own: each method runs one tool
// invocation, and a failing invocation surfaces the tool's exit code,
// stdout and stderr unchanged through [*ExitError].
package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// DefaultTool is the repository tool looked up on PATH.
const DefaultTool = "caom2repo"

// ErrNotFound is returned by Get and Exists when the observation does
// not exist in the repository.
var ErrNotFound = errors.New("repo: observation not found")

// Repository runs the repository tool. The zero value is not usable;
// create instances with New.
type Repository struct {
	tool   string
	args   []string
	logger *slog.Logger
}

// Option configures a Repository.
type Option func(*Repository)

// WithTool sets the tool name or path. The default is DefaultTool.
func WithTool(tool string) Option {
	return func(r *Repository) {
		r.tool = tool
	}
}

// WithArgs adds arguments placed before the verb on every invocation,
// e.g. a --cert flag.
func WithArgs(args ...string) Option {
	return func(r *Repository) {
		r.args = append(r.args, args...)
	}
}

// WithLogger sets the logger used for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a repository wrapper.
func New(opts ...Option) *Repository {
	r := &Repository{
		tool:   DefaultTool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run invokes the tool once and captures its output.
func (r *Repository) run(ctx context.Context, verb, uri string, extra ...string) (string, string, error) {
	args := append(append([]string{}, r.args...), verb, uri)
	args = append(args, extra...)
	r.logger.Debug("repo command", "tool", r.tool, "args", args)

	cmd := exec.CommandContext(ctx, r.tool, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), stderr.String(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.String(), stderr.String(), &ExitError{
			Verb:     verb,
			URI:      uri,
			ExitCode: exitErr.ExitCode(),
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}
	}
	return stdout.String(), stderr.String(),
		fmt.Errorf("repo: %s %s: %w", verb, uri, err)
}

// Get fetches the observation record identified by uri into the file at
// dest. A record absent from the repository fails with ErrNotFound.
func (r *Repository) Get(ctx context.Context, uri, dest string) error {
	_, _, err := r.run(ctx, "get", uri, dest)
	if isNotFound(err) {
		// Keep the tool's output and exit status alongside the sentinel.
		return fmt.Errorf("%w: %s: %w", ErrNotFound, uri, err)
	}
	return err
}

// Put stores a new observation record from the file at src. Putting a
// record that already exists is an error; use Update or Store instead.
func (r *Repository) Put(ctx context.Context, uri, src string) error {
	_, _, err := r.run(ctx, "put", uri, src)
	return err
}

// Update replaces an existing observation record with the file at src.
func (r *Repository) Update(ctx context.Context, uri, src string) error {
	_, _, err := r.run(ctx, "update", uri, src)
	return err
}

// Remove deletes the observation record identified by uri.
func (r *Repository) Remove(ctx context.Context, uri string) error {
	_, _, err := r.run(ctx, "remove", uri)
	return err
}

// Exists reports whether the repository holds a record for uri.
func (r *Repository) Exists(ctx context.Context, uri string) (bool, error) {
	err := r.Get(ctx, uri, os.DevNull)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Store writes the observation record at src under uri, choosing put or
// update depending on whether the record already exists. The repository
// tool insists on the distinction; Store hides it.
func (r *Repository) Store(ctx context.Context, uri, src string) error {
	exists, err := r.Exists(ctx, uri)
	if err != nil {
		return err
	}
	if exists {
		return r.Update(ctx, uri, src)
	}
	return r.Put(ctx, uri, src)
}

// isNotFound recognizes the tool's complaint about a missing record.
func isNotFound(err error) bool {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	out := strings.ToLower(exitErr.Stderr + exitErr.Stdout)
	return strings.Contains(out, "not found") || strings.Contains(out, "no such observation")
}
