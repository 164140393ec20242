// Package validate checks candidate files before they are ingested.
//
// A Validator runs individual checks (size, naming convention, archive
// membership, header keywords, fitsverify) and records failures in a
// [Warner] rather than returning errors, so a whole batch can be
// examined and reported in one pass. Each check also returns whether
// it passed, letting callers skip dependent checks.
package validate

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/eaobservatory/caomtools/dataweb"
)

// Validator runs file checks and records problems in a Warner.
type Validator struct {
	warner     *Warner
	client     *dataweb.Client
	fitsverify string
	logger     *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithDataWebClient supplies the client used by archive membership
// checks. Without one, InArchive records an error for every file.
func WithDataWebClient(client *dataweb.Client) Option {
	return func(v *Validator) {
		v.client = client
	}
}

// WithFitsverify sets the fitsverify executable name or path. The
// default is "fitsverify".
func WithFitsverify(path string) Option {
	return func(v *Validator) {
		v.fitsverify = path
	}
}

// WithLogger sets the logger used for check tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New creates a Validator recording problems in warner.
func New(warner *Warner, opts ...Option) *Validator {
	v := &Validator{
		warner:     warner,
		fitsverify: "fitsverify",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Warner returns the validator's problem accumulator.
func (v *Validator) Warner() *Warner {
	return v.warner
}

// CheckSize verifies that the file at path exists and is not empty.
func (v *Validator) CheckSize(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		v.warner.Errorf(path, "file does not exist")
		return false
	}
	if info.Size() == 0 {
		v.warner.Errorf(path, "file has length 0")
		return false
	}
	return true
}

// CheckName verifies that the file's base name, without extension,
// fully matches one of the named patterns. The matching pattern's name
// is returned.
func (v *Validator) CheckName(path string, patterns map[string]*regexp.Regexp) (string, bool) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	for label, re := range patterns {
		if m := re.FindString(name); m == name {
			return label, true
		}
	}
	v.warner.Errorf(path, "file name %q does not match any naming convention", name)
	return "", false
}

// InArchive verifies the archive's knowledge of fileID against
// expected: a file expected in the archive must be present, and a file
// not expected must be absent.
func (v *Validator) InArchive(ctx context.Context, path, archive, fileID string, expected bool) bool {
	if v.client == nil {
		v.warner.Errorf(path, "no data web client configured for archive check")
		return false
	}

	_, err := v.client.Info(ctx, archive, fileID)
	switch {
	case err == nil:
		if !expected {
			v.warner.Errorf(path, "file id %q is already in the archive", fileID)
			return false
		}
		return true
	case errors.Is(err, dataweb.ErrNotFound):
		if expected {
			v.warner.Errorf(path, "file id %q is not in the archive", fileID)
			return false
		}
		return true
	default:
		v.warner.Errorf(path, "archive check for %q failed: %v", fileID, err)
		return false
	}
}

// ExpectKeyword verifies that header contains a non-empty value for
// keyword.
func (v *Validator) ExpectKeyword(path, keyword string, header map[string]string) bool {
	if header[keyword] == "" {
		v.warner.Errorf(path, "mandatory keyword %q is missing", keyword)
		return false
	}
	return true
}

// RestrictedValue verifies that header's value for keyword is one of
// allowed.
func (v *Validator) RestrictedValue(path, keyword string, header map[string]string, allowed []string) bool {
	value, ok := header[keyword]
	if !ok {
		v.warner.Errorf(path, "restricted keyword %q is missing", keyword)
		return false
	}
	if !slices.Contains(allowed, value) {
		v.warner.Errorf(path, "keyword %q has value %q, expected one of %s",
			keyword, value, strings.Join(allowed, ", "))
		return false
	}
	return true
}

// VerifyFITS runs fitsverify on the file at path. When the fitsverify
// executable is not installed the check is skipped and passes.
func (v *Validator) VerifyFITS(ctx context.Context, path string) bool {
	exe, err := exec.LookPath(v.fitsverify)
	if err != nil {
		v.logger.Debug("fitsverify not installed, skipping check", "file", path)
		return true
	}

	output, err := exec.CommandContext(ctx, exe, "-q", path).CombinedOutput()
	if err != nil {
		v.warner.Errorf(path, "fitsverify failed: %s",
			strings.TrimSpace(string(output)))
		return false
	}
	return true
}

// CheckAll runs the basic standalone checks (size, then name) on path
// and reports whether all passed.
func (v *Validator) CheckAll(path string, patterns map[string]*regexp.Regexp) bool {
	if !v.CheckSize(path) {
		return false
	}
	_, ok := v.CheckName(path, patterns)
	return ok
}
