// Package logging builds the file-backed loggers used by ingestion
// runs.
//
// A run logs everything to a timestamped file and mirrors the
// important part of the stream (warnings and errors by default) to the
// console, so an operator watching a batch job sees problems without
// the full trace. Fail records an error and returns it as a value, for
// call sites that both log and propagate.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eaobservatory/caomtools/mjd"
)

// Logger writes structured records to a log file and mirrors records
// at or above a console threshold to a console writer.
type Logger struct {
	*slog.Logger
	file *os.File
	path string
}

type options struct {
	level        slog.Level
	consoleLevel slog.Level
	console      io.Writer
}

// Option configures a Logger.
type Option func(*options)

// WithLevel sets the minimum level written to the log file. The
// default is slog.LevelDebug.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithConsoleLevel sets the minimum level mirrored to the console. The
// default is slog.LevelWarn.
func WithConsoleLevel(level slog.Level) Option {
	return func(o *options) {
		o.consoleLevel = level
	}
}

// WithConsole sets the console writer. The default is os.Stderr; a nil
// writer disables mirroring.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// New creates a Logger appending to the file at path, creating it if
// needed.
func New(path string, opts ...Option) (*Logger, error) {
	o := options{
		level:        slog.LevelDebug,
		consoleLevel: slog.LevelWarn,
		console:      os.Stderr,
	}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}

	var handler slog.Handler = slog.NewTextHandler(f, &slog.HandlerOptions{Level: o.level})
	if o.console != nil {
		handler = tee{
			handler,
			slog.NewTextHandler(o.console, &slog.HandlerOptions{Level: o.consoleLevel}),
		}
	}

	return &Logger{
		Logger: slog.New(handler),
		file:   f,
		path:   path,
	}, nil
}

// Path returns the log file path.
func (l *Logger) Path() string {
	return l.path
}

// Fail logs msg and its attributes at error level and returns an error
// carrying the message and the attributes, so the context that was
// logged travels with the error value.
func (l *Logger) Fail(msg string, args ...any) error {
	l.Error(msg, args...)
	if len(args) == 0 {
		return errors.New(msg)
	}

	var b strings.Builder
	b.WriteString(msg)
	r := slog.NewRecord(time.Time{}, slog.LevelError, msg, 0)
	r.Add(args...)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})
	return errors.New(b.String())
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("logging: close log file: %w", err)
	}
	return nil
}

// DefaultPath returns a timestamped log path in dir, named
// "<prefix>_stamp-yyyymmddthhmmss.log" from the current UTC time.
func DefaultPath(dir, prefix string) string {
	stamp := mjd.UTDateString(time.Now().UTC())
	return filepath.Join(dir, prefix+"_"+stamp+".log")
}

// tee fans a record out to every handler enabled for its level.
type tee []slog.Handler

func (t tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t tee) WithGroup(name string) slog.Handler {
	out := make(tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
