package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool writes an executable shell script standing in for caom2repo.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "caom2repo")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestRepositoryGet(t *testing.T) {
	t.Parallel()

	tool := fakeTool(t, `echo "read $2" > "$3"`)
	r := New(WithTool(tool))

	dest := filepath.Join(t.TempDir(), "obs.xml")
	err := r.Get(context.Background(), "caom:JCMT/obs1", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "read caom:JCMT/obs1\n", string(data))
}

func TestRepositoryGetNotFound(t *testing.T) {
	t.Parallel()

	tool := fakeTool(t, `echo "collection offline, record not found (code CR-17)" >&2; exit 1`)
	r := New(WithTool(tool))

	err := r.Get(context.Background(), "caom:JCMT/absent", os.DevNull)
	assert.ErrorIs(t, err, ErrNotFound)

	// The tool's diagnostics survive the sentinel wrapping.
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode)
	assert.Contains(t, err.Error(), "record not found (code CR-17)")
	assert.Contains(t, err.Error(), "caom:JCMT/absent")
}

func TestRepositoryFailureCarriesOutput(t *testing.T) {
	t.Parallel()

	tool := fakeTool(t, `echo "some progress"; echo "fatal: server unreachable" >&2; exit 3`)
	r := New(WithTool(tool))

	err := r.Put(context.Background(), "caom:JCMT/obs1", "obs.xml")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Equal(t, "put", exitErr.Verb)
	assert.Contains(t, exitErr.Stderr, "server unreachable")
	assert.Contains(t, exitErr.Stdout, "some progress")

	// Both streams appear in the message itself.
	assert.Contains(t, err.Error(), "server unreachable")
	assert.Contains(t, err.Error(), "some progress")
	assert.Contains(t, err.Error(), "exit status 3")
}

func TestRepositoryStoreChoosesPutOrUpdate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	marker := filepath.Join(dir, "exists")
	verbs := filepath.Join(dir, "verbs")

	// get succeeds only when the marker file exists; put creates it.
	tool := fakeTool(t, fmt.Sprintf(`
verb="$1"
echo "$verb" >> %q
case "$verb" in
get)
    [ -e %q ] || { echo "not found" >&2; exit 1; }
    ;;
put)
    touch %q
    ;;
esac
exit 0`, verbs, marker, marker))
	r := New(WithTool(tool))
	ctx := context.Background()

	require.NoError(t, r.Store(ctx, "caom:JCMT/obs1", "obs.xml"))
	require.NoError(t, r.Store(ctx, "caom:JCMT/obs1", "obs.xml"))

	data, err := os.ReadFile(verbs)
	require.NoError(t, err)
	assert.Equal(t, "get\nput\nget\nupdate\n", string(data))
}

func TestRepositoryRemove(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	verbs := filepath.Join(dir, "verbs")
	tool := fakeTool(t, fmt.Sprintf(`echo "$1 $2" >> %q`, verbs))
	r := New(WithTool(tool), WithArgs("--cert", "proxy.pem"))

	require.NoError(t, r.Remove(context.Background(), "caom:JCMT/obs1"))

	data, err := os.ReadFile(verbs)
	require.NoError(t, err)
	// WithArgs places global flags before the verb.
	assert.Equal(t, "--cert proxy.pem\n", string(data))
}

func TestRepositoryMissingTool(t *testing.T) {
	t.Parallel()

	r := New(WithTool(filepath.Join(t.TempDir(), "no-such-tool")))
	err := r.Remove(context.Background(), "caom:JCMT/obs1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
