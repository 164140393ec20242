package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaobservatory/caomtools/mjd"
)

func TestNewWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")
	var console bytes.Buffer

	logger, err := New(path, WithConsole(&console))
	require.NoError(t, err)

	logger.Debug("fetching file", "file_id", "a20140101_1")
	logger.Info("stored observation", "obs_id", "obs-1")
	logger.Warn("file already exists", "file_id", "a20140101_2")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "fetching file")
	assert.Contains(t, string(content), "stored observation")
	assert.Contains(t, string(content), "file already exists")

	// Only warnings and above reach the console by default.
	assert.NotContains(t, console.String(), "fetching file")
	assert.NotContains(t, console.String(), "stored observation")
	assert.Contains(t, console.String(), "file already exists")
}

func TestNewAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")

	logger, err := New(path, WithConsole(nil))
	require.NoError(t, err)
	logger.Info("first run")
	require.NoError(t, logger.Close())

	logger, err = New(path, WithConsole(nil))
	require.NoError(t, err)
	logger.Info("second run")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "first run")
	assert.Contains(t, string(content), "second run")
}

func TestWithLevel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")

	logger, err := New(path, WithLevel(slog.LevelInfo), WithConsole(nil))
	require.NoError(t, err)
	logger.Debug("invisible")
	logger.Info("visible")
	require.NoError(t, logger.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "invisible")
	assert.Contains(t, string(content), "visible")
}

func TestWithConsoleLevel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")
	var console bytes.Buffer

	logger, err := New(path, WithConsole(&console), WithConsoleLevel(slog.LevelInfo))
	require.NoError(t, err)
	logger.Info("stored observation")
	require.NoError(t, logger.Close())

	assert.Contains(t, console.String(), "stored observation")
}

func TestFail(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")
	var console bytes.Buffer

	logger, err := New(path, WithConsole(&console))
	require.NoError(t, err)

	failure := logger.Fail("observation rejected", "obs_id", "obs-1")
	require.NoError(t, logger.Close())

	// The logged attributes travel with the error value.
	require.Error(t, failure)
	assert.Equal(t, "observation rejected obs_id=obs-1", failure.Error())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "observation rejected")
	assert.Contains(t, string(content), "obs-1")
	assert.Contains(t, console.String(), "observation rejected")
}

func TestFailNoArgs(t *testing.T) {
	t.Parallel()

	logger, err := New(filepath.Join(t.TempDir(), "run.log"), WithConsole(nil))
	require.NoError(t, err)

	failure := logger.Fail("ingestion aborted")
	require.NoError(t, logger.Close())
	assert.Equal(t, "ingestion aborted", failure.Error())
}

func TestNewBadPath(t *testing.T) {
	t.Parallel()

	_, err := New(filepath.Join(t.TempDir(), "missing", "run.log"))
	require.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	t.Parallel()

	path := DefaultPath("/var/log/caom", "ingest")
	assert.Equal(t, "/var/log/caom", filepath.Dir(path))

	base := filepath.Base(path)
	assert.True(t, mjd.UTDateRegexp.MatchString(base), base)
	assert.Contains(t, base, "ingest_stamp-")
	assert.Contains(t, base, ".log")
}
