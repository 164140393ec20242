package caomtools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Container is a named, ordered collection of file members. Member order
// is stable for the lifetime of the container and matches the order
// reported by the underlying medium: lexical order for directories, entry
// order for tar archives, list order for explicit lists, and listing
// order for remote archive directories.
//
// Containers are read-only views of their medium. Fetch resolves a member
// lazily, copying or downloading it into a working directory when the
// medium is not the local filesystem, and Release removes that temporary
// copy. Implementations are not safe for concurrent use unless noted.
type Container interface {
	// Name returns a display name for the container, typically derived
	// from the path of the underlying medium.
	Name() string

	// Members returns the member IDs in stable order.
	Members() []string

	// Fetch resolves a member to a path on the local filesystem. The
	// returned path remains valid until Release is called for the same
	// ID. Fetching an unknown ID fails with ErrNotFound.
	Fetch(ctx context.Context, id string) (string, error)

	// Release discards any temporary copy created by Fetch. Releasing a
	// member that needed no copy is a no-op.
	Release(id string) error

	// Close releases resources held by the container.
	Close() error
}

// FilterFunc reports whether a file name should be included in a
// container. Filters see base names only.
type FilterFunc func(filename string) bool

// FileIDFunc derives a member ID from a file name.
type FileIDFunc func(filename string) string

// DefaultFileID strips the directory and extension from a file name and
// lowercases what remains. This matches the file naming convention used
// by the archive, where storage IDs are lower-case basenames.
func DefaultFileID(filename string) string {
	base := filepath.Base(filename)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// FITSFilter accepts only FITS files (.fits or .fit, case-insensitive).
func FITSFilter(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".fits", ".fit":
		return true
	}
	return false
}

// Use fetches a member, passes its path to fn, and releases the member
// when fn returns. This is the preferred way to consume a member because
// it guarantees cleanup of temporary copies:
//
//	err := caomtools.Use(ctx, c, id, func(path string) error {
//	    return process(path)
//	})
func Use(ctx context.Context, c Container, id string, fn func(path string) error) error {
	path, err := c.Fetch(ctx, id)
	if err != nil {
		return err
	}
	return errors.Join(fn(path), c.Release(id))
}

// ReadMember fetches a member and returns its content. The temporary
// copy, if any, is released before returning.
func ReadMember(ctx context.Context, c Container, id string) ([]byte, error) {
	var data []byte
	err := Use(ctx, c, id, func(path string) error {
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read member %s: %w", id, err)
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// members records member IDs in insertion order with their resolved
// paths. It backs every container implementation.
type members struct {
	ids   []string
	paths map[string]string
}

func newMembers() members {
	return members{paths: make(map[string]string)}
}

// add records a member. Adding an existing ID replaces its path without
// changing its position.
func (m *members) add(id, path string) {
	if _, ok := m.paths[id]; !ok {
		m.ids = append(m.ids, id)
	}
	m.paths[id] = path
}

func (m *members) contains(id string) bool {
	_, ok := m.paths[id]
	return ok
}

func (m *members) path(id string) (string, bool) {
	p, ok := m.paths[id]
	return p, ok
}

func (m *members) list() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

func (m *members) len() int {
	return len(m.ids)
}

// expandPath expands environment variables and a leading ~ in a path and
// makes it absolute.
func expandPath(path string) (string, error) {
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %q: %w", path, err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return abs, nil
}

// checkWorkdir verifies that a working directory exists and returns its
// absolute path.
func checkWorkdir(dir string) (string, error) {
	abs, err := expandPath(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("working directory %s: not a directory", abs)
	}
	return abs, nil
}
