package caomtools

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// TarContainer exposes the regular entries of a tar archive, optionally
// gzip-compressed, as container members. Entries may live in arbitrarily
// nested subdirectories inside the archive; they are extracted flat into
// the working directory when fetched and deleted again on Release.
//
// When several entries share a member ID (same basename with different
// directories or extensions), the last entry wins, matching the archive
// convention that later entries supersede earlier ones.
type TarContainer struct {
	name    string
	tarPath string
	workdir string
	members members
	entries map[string]string // member ID -> entry name inside the archive
}

// NewTarContainer creates a container from the entries of the tar file
// at tarPath. Fetched members are extracted into workdir, which must
// already exist. Members are listed in archive entry order.
func NewTarContainer(tarPath, workdir string, opts ...Option) (*TarContainer, error) {
	o := applyOptions(opts)

	abs, err := expandPath(tarPath)
	if err != nil {
		return nil, err
	}
	wd, err := checkWorkdir(workdir)
	if err != nil {
		return nil, err
	}

	c := &TarContainer{
		name:    filepath.Base(abs),
		tarPath: abs,
		workdir: wd,
		members: newMembers(),
		entries: make(map[string]string),
	}

	err = c.scan(func(hdr *tar.Header, _ *tar.Reader) error {
		name := filepath.Base(hdr.Name)
		if !o.include(name) {
			return nil
		}
		id := o.fileID(name)
		c.entries[id] = hdr.Name
		c.members.add(id, filepath.Join(wd, name))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.members.len() == 0 {
		return nil, fmt.Errorf("%w: tar file %s", ErrEmptyContainer, abs)
	}
	return c, nil
}

// scan walks the archive's regular entries in order, invoking fn with
// the reader positioned at each entry's content.
func (c *TarContainer) scan(fn func(hdr *tar.Header, tr *tar.Reader) error) error {
	f, err := os.Open(c.tarPath)
	if err != nil {
		return fmt.Errorf("tar container: %w", err)
	}
	defer f.Close()

	var magic [2]byte
	_, _ = io.ReadFull(f, magic[:])
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("tar container: %w", err)
	}

	var r io.Reader = f
	if magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("tar container %s: %w", c.tarPath, err)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	sawEntry := false
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if !sawEntry {
				return fmt.Errorf("tar container %s: not a tar archive: %w", c.tarPath, err)
			}
			return fmt.Errorf("tar container %s: %w", c.tarPath, err)
		}
		sawEntry = true
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the base name of the tar file.
func (c *TarContainer) Name() string {
	return c.name
}

// Members returns the member IDs in archive entry order.
func (c *TarContainer) Members() []string {
	return c.members.list()
}

// Fetch extracts the member into the working directory and returns the
// extracted path.
func (c *TarContainer) Fetch(ctx context.Context, id string) (string, error) {
	entry, ok := c.entries[id]
	if !ok {
		return "", fmt.Errorf("%w: %s in tar file %s", ErrNotFound, id, c.tarPath)
	}
	dest, _ := c.members.path(id)

	found := false
	err := c.scan(func(hdr *tar.Header, tr *tar.Reader) error {
		if hdr.Name != entry {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		found = true
		return writeFile(dest, tr)
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: %s vanished from tar file %s", ErrNotFound, id, c.tarPath)
	}
	return dest, nil
}

// Release deletes the extracted copy of the member, if present.
func (c *TarContainer) Release(id string) error {
	dest, ok := c.members.path(id)
	if !ok {
		return fmt.Errorf("%w: %s in tar file %s", ErrNotFound, id, c.tarPath)
	}
	err := os.Remove(dest)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release %s: %w", id, err)
	}
	return nil
}

// Close is a no-op: the archive is reopened for each fetch.
func (c *TarContainer) Close() error {
	return nil
}

func writeFile(dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("extract to %s: %w", dest, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("extract to %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("extract to %s: %w", dest, err)
	}
	return nil
}

var _ Container = (*TarContainer)(nil)
