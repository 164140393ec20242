package dataweb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(t.TempDir(),
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c, srv
}

func TestClientInfo(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/JCMT/file1":
			w.Header().Set("Content-Disposition", "attachment; filename=file1.fits")
			w.Header().Set("Content-Length", "5")
		default:
			http.NotFound(w, r)
		}
	}))

	ctx := context.Background()

	header, err := c.Info(ctx, "JCMT", "file1")
	require.NoError(t, err)
	assert.Contains(t, header.Get("Content-Disposition"), "file1.fits")

	_, err = c.Info(ctx, "JCMT", "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientGet(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/JCMT/file1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=file1.fits")
		fmt.Fprint(w, "observed data")
	}))

	ctx := context.Background()

	path, err := c.Get(ctx, "JCMT", "file1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(c.Workdir(), "file1.fits"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "observed data", string(data))

	_, err = c.Get(ctx, "JCMT", "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientGetStripsCompressionSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		disposition string
		want        string
	}{
		{"attachment; filename=file1.fits.gz", "file1.fits"},
		{"attachment; filename=file1.ftz", "file1.fits"},
		{"attachment; filename=file1.fits", "file1.fits"},
		{"", "file1"},
	}

	for _, tt := range tests {
		disposition := tt.disposition
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if disposition != "" {
				w.Header().Set("Content-Disposition", disposition)
			}
			fmt.Fprint(w, "data")
		}))

		path, err := c.Get(context.Background(), "JCMT", "file1")
		require.NoError(t, err, "disposition %q", tt.disposition)
		assert.Equal(t, tt.want, filepath.Base(path), "disposition %q", tt.disposition)
	}
}

func TestClientGetHeaderOnly(t *testing.T) {
	t.Parallel()

	var query string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		fmt.Fprint(w, "SIMPLE  =                    T")
	}))

	_, err := c.Get(context.Background(), "JCMT", "file1", GetWithHeaderOnly())
	require.NoError(t, err)
	assert.Contains(t, query, "fhead=true")
	assert.Contains(t, query, "cutout=%5B0%5D")
}

func TestClientGetNoClobber(t *testing.T) {
	t.Parallel()

	requests := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		fmt.Fprint(w, "fresh")
	}))

	existing := filepath.Join(c.Workdir(), "file1")
	require.NoError(t, os.WriteFile(existing, []byte("stale"), 0o644))

	path, err := c.Get(context.Background(), "JCMT", "file1", GetWithNoClobber())
	require.NoError(t, err)
	assert.Equal(t, existing, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "stale", string(data), "existing file must not be overwritten")
}

func TestClientGetDigest(t *testing.T) {
	t.Parallel()

	content := []byte("observed data")
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(content)
	}))

	ctx := context.Background()

	path, err := c.Get(ctx, "JCMT", "file1", GetWithDigest(digest.FromBytes(content)))
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = c.Get(ctx, "JCMT", "file2",
		GetWithDigest(digest.FromBytes([]byte("something else"))))
	assert.ErrorIs(t, err, ErrDigestMismatch)
}

func TestClientPut(t *testing.T) {
	t.Parallel()

	var (
		gotBody   []byte
		gotStream string
	)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		var err error
		gotBody, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		gotStream = r.Header.Get("X-CADC-Stream")
		w.WriteHeader(http.StatusCreated)
	}))

	dir := t.TempDir()
	src := filepath.Join(dir, "upload.fits")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	err := c.Put(context.Background(), src, "JCMT", "upload", PutWithStream("raw"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), gotBody)
	assert.Equal(t, "raw", gotStream)
}

func TestClientPutRejected(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))

	dir := t.TempDir()
	src := filepath.Join(dir, "upload.fits")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	err := c.Put(context.Background(), src, "JCMT", "upload")
	assert.ErrorIs(t, err, ErrStore)
}

func TestClientPutMissingFile(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.Put(context.Background(), filepath.Join(t.TempDir(), "absent"), "JCMT", "absent")
	assert.ErrorIs(t, err, ErrStore)
}

func TestClientDelete(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path != "/JCMT/file1" {
			http.NotFound(w, r)
		}
	}))

	ctx := context.Background()
	require.NoError(t, c.Delete(ctx, "JCMT", "file1"))
	assert.ErrorIs(t, c.Delete(ctx, "JCMT", "absent"), ErrNotFound)
}

func TestNewClientBadWorkdir(t *testing.T) {
	t.Parallel()

	_, err := NewClient(filepath.Join(t.TempDir(), "no-such-dir"))
	require.Error(t, err)
}
