// Package gridengine submits batch jobs to a Grid Engine cluster
// through the qsub command.
//
// A submission writes a shell script containing the caller's commands,
// then hands it to qsub. Transient qsub failures are retried over a
// short backoff schedule because the scheduler is occasionally
// unreachable from the processing hosts; a submission that still fails
// after the schedule surfaces qsub's output in the returned error.
package gridengine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// DefaultQueue is the cluster queue jobs are submitted to.
const DefaultQueue = "cadcproc"

// defaultPreamble is prepended to generated job scripts.
var defaultPreamble = []string{
	"#!/bin/csh",
	"echo HOSTNAME = $HOSTNAME",
	"echo HOSTTYPE = $HOSTTYPE",
	"which java",
}

// jobIDRegexp extracts the job identifier from qsub's acknowledgement,
// e.g. `Your job 12345 ("script.csh") has been submitted`.
var jobIDRegexp = regexp.MustCompile(`Your job(?:-array)? (\d+)`)

// Submitter submits jobs to Grid Engine.
type Submitter struct {
	qsub     string
	queue    string
	options  []string
	preamble []string
	env      []string
	backoff  []time.Duration
	logger   *slog.Logger
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithQueue sets the submission queue. The default is DefaultQueue.
func WithQueue(queue string) Option {
	return func(s *Submitter) {
		s.queue = queue
	}
}

// WithOptions replaces the extra qsub options. The default is
// "-cwd -j yes".
func WithOptions(options ...string) Option {
	return func(s *Submitter) {
		s.options = options
	}
}

// WithPreamble replaces the job script preamble. The first line should
// be a shebang.
func WithPreamble(lines ...string) Option {
	return func(s *Submitter) {
		s.preamble = lines
	}
}

// WithExportEnv forwards the named environment variables, when set in
// the submitting process, into the job script.
func WithExportEnv(names ...string) Option {
	return func(s *Submitter) {
		s.env = append(s.env, names...)
	}
}

// WithCommand sets the qsub executable name or path.
func WithCommand(path string) Option {
	return func(s *Submitter) {
		s.qsub = path
	}
}

// WithBackoff replaces the retry schedule. The number of attempts is
// one more than the number of delays; an empty schedule disables
// retrying.
func WithBackoff(delays ...time.Duration) Option {
	return func(s *Submitter) {
		s.backoff = delays
	}
}

// WithLogger sets the logger used for submission tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Submitter.
func New(opts ...Option) *Submitter {
	s := &Submitter{
		qsub:     "qsub",
		queue:    DefaultQueue,
		options:  []string{"-cwd", "-j", "yes"},
		preamble: defaultPreamble,
		backoff:  []time.Duration{10 * time.Second, 20 * time.Second, 40 * time.Second},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit writes commands into the job script at scriptPath, overwriting
// it if it exists, and submits the script to the queue with its output
// directed to logPath. It returns the scheduler's job identifier.
func (s *Submitter) Submit(ctx context.Context, commands []string, scriptPath, logPath string) (string, error) {
	if err := s.writeScript(commands, scriptPath, logPath); err != nil {
		return "", err
	}

	args := append([]string{"-q", s.queue}, s.options...)
	args = append(args, "-o", logPath, scriptPath)
	s.logger.Debug("gridengine submit", "qsub", s.qsub, "args", args)

	var output string
	var err error
	for attempt := 0; ; attempt++ {
		output, err = s.runQsub(ctx, args)
		if err == nil || attempt == len(s.backoff) {
			break
		}
		s.logger.Warn("qsub failed, retrying",
			"attempt", attempt+1, "pause", s.backoff[attempt], "error", err)
		select {
		case <-time.After(s.backoff[attempt]):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", fmt.Errorf("gridengine: submit %s: %w: %s",
			scriptPath, err, strings.TrimSpace(output))
	}

	m := jobIDRegexp.FindStringSubmatch(output)
	if m == nil {
		return "", fmt.Errorf("gridengine: unrecognized qsub output: %s",
			strings.TrimSpace(output))
	}
	s.logger.Info("gridengine job submitted", "job_id", m[1], "script", scriptPath)
	return m[1], nil
}

// writeScript generates the job script: preamble, forwarded environment
// variables, then each command echoed before it runs so the job log
// shows progress.
func (s *Submitter) writeScript(commands []string, scriptPath, logPath string) error {
	var b strings.Builder
	for _, line := range s.preamble {
		fmt.Fprintln(&b, line)
	}
	fmt.Fprintln(&b, "echo SCRIPT = "+scriptPath)
	fmt.Fprintln(&b, "echo LOGFILE = "+logPath)
	for _, name := range s.env {
		if value, ok := os.LookupEnv(name); ok {
			fmt.Fprintf(&b, "setenv %s %s\n", name, value)
		}
	}
	for _, cmd := range commands {
		fmt.Fprintf(&b, "echo %s\n%s\n", cmd, cmd)
	}

	if err := os.WriteFile(scriptPath, []byte(b.String()), 0o755); err != nil {
		return fmt.Errorf("gridengine: write script: %w", err)
	}
	return nil
}

func (s *Submitter) runQsub(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, s.qsub, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}
