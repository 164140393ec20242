package caomtools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirectoryContainer exposes the regular files under a directory as
// container members. Members resolve to their original paths, so Fetch
// copies nothing and Release is a no-op.
type DirectoryContainer struct {
	name    string
	root    string
	members members
}

// NewDirectoryContainer creates a container from the files under root.
// Only the files directly in root are listed unless WithRecursive is
// given. Members are listed in lexical path order.
func NewDirectoryContainer(root string, opts ...Option) (*DirectoryContainer, error) {
	o := applyOptions(opts)

	abs, err := expandPath(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("directory container: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("directory container %s: not a directory", abs)
	}

	c := &DirectoryContainer{
		name:    filepath.Base(abs),
		root:    abs,
		members: newMembers(),
	}

	add := func(path string) error {
		name := filepath.Base(path)
		if !o.include(name) {
			return nil
		}
		id := o.fileID(name)
		if c.members.contains(id) {
			return fmt.Errorf("%w: %s for %s", ErrDuplicateMember, id, path)
		}
		c.members.add(id, path)
		return nil
	}

	if o.recursive {
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.Type().IsRegular() {
				return add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("directory container %s: %w", abs, err)
		}
	} else {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil, fmt.Errorf("directory container %s: %w", abs, err)
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			if err := add(filepath.Join(abs, e.Name())); err != nil {
				return nil, err
			}
		}
	}

	if c.members.len() == 0 {
		return nil, fmt.Errorf("%w: directory %s", ErrEmptyContainer, abs)
	}
	return c, nil
}

// Name returns the base name of the directory.
func (c *DirectoryContainer) Name() string {
	return c.name
}

// Members returns the member IDs in lexical path order.
func (c *DirectoryContainer) Members() []string {
	return c.members.list()
}

// Fetch returns the path of the member's file under the directory.
func (c *DirectoryContainer) Fetch(_ context.Context, id string) (string, error) {
	path, ok := c.members.path(id)
	if !ok {
		return "", fmt.Errorf("%w: %s in directory %s", ErrNotFound, id, c.root)
	}
	return path, nil
}

// Release is a no-op: members live at their original paths.
func (c *DirectoryContainer) Release(string) error {
	return nil
}

// Close is a no-op.
func (c *DirectoryContainer) Close() error {
	return nil
}

var _ Container = (*DirectoryContainer)(nil)
