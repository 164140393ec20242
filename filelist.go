package caomtools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileListContainer holds an explicit list of files, typically supplied
// on a command line. Every file must exist when the container is
// constructed. Members resolve to their original paths and are never
// deleted.
type FileListContainer struct {
	name    string
	members members
}

// NewFileListContainer creates a container from a list of file paths.
// Paths are expanded (environment variables and ~) and made absolute.
// Members are listed in the order given.
func NewFileListContainer(name string, files []string, opts ...Option) (*FileListContainer, error) {
	o := applyOptions(opts)

	c := &FileListContainer{
		name:    name,
		members: newMembers(),
	}

	for _, f := range files {
		path, err := expandPath(f)
		if err != nil {
			return nil, err
		}
		if !o.include(filepath.Base(path)) {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, f)
		}
		id := o.fileID(filepath.Base(path))
		if c.members.contains(id) {
			return nil, fmt.Errorf("%w: %s for %s", ErrDuplicateMember, id, f)
		}
		c.members.add(id, path)
	}

	if c.members.len() == 0 {
		return nil, fmt.Errorf("%w: file list %s", ErrEmptyContainer, name)
	}
	return c, nil
}

// Name returns the list name given at construction.
func (c *FileListContainer) Name() string {
	return c.name
}

// Members returns the member IDs in list order.
func (c *FileListContainer) Members() []string {
	return c.members.list()
}

// Fetch returns the absolute path of the listed file.
func (c *FileListContainer) Fetch(_ context.Context, id string) (string, error) {
	path, ok := c.members.path(id)
	if !ok {
		return "", fmt.Errorf("%w: %s in file list %s", ErrNotFound, id, c.name)
	}
	return path, nil
}

// Release is a no-op: listed files are never deleted.
func (c *FileListContainer) Release(string) error {
	return nil
}

// Close is a no-op.
func (c *FileListContainer) Close() error {
	return nil
}

var _ Container = (*FileListContainer)(nil)
