package caomtools

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileListContainer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string][]byte{
		"file1.fits": []byte("data1"),
		"file2.fits": []byte("data2"),
		"file3.fits": []byte("data3"),
	})

	// Deliberately not sorted: list order must be preserved.
	files := []string{
		filepath.Join(dir, "file2.fits"),
		filepath.Join(dir, "file1.fits"),
		filepath.Join(dir, "file3.fits"),
	}

	c, err := NewFileListContainer("cmdline", files, WithFilter(FITSFilter))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "cmdline", c.Name())
	assert.Equal(t, []string{"file2", "file1", "file3"}, c.Members())

	ctx := context.Background()
	for _, id := range c.Members() {
		data, err := ReadMember(ctx, c, id)
		require.NoError(t, err, "member %s", id)
		assert.NotEmpty(t, data, "member %s", id)
	}
}

func TestFileListContainerMissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := NewFileListContainer("cmdline", []string{filepath.Join(dir, "absent.fits")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileListContainerNotFound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string][]byte{"file1.fits": []byte("data1")})

	c, err := NewFileListContainer("cmdline", []string{filepath.Join(dir, "file1.fits")})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "bogus")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileListContainerEmpty(t *testing.T) {
	t.Parallel()

	_, err := NewFileListContainer("cmdline", nil)
	assert.ErrorIs(t, err, ErrEmptyContainer)
}

func TestFileListContainerDuplicateID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	createTestFiles(t, dir, map[string][]byte{
		"file1.fits": []byte("a"),
		"file1.fit":  []byte("b"),
	})

	_, err := NewFileListContainer("cmdline", []string{
		filepath.Join(dir, "file1.fits"),
		filepath.Join(dir, "file1.fit"),
	})
	assert.ErrorIs(t, err, ErrDuplicateMember)
}
