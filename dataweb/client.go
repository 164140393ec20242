// Package dataweb provides a client for the archive data web service,
// the HTTP interface through which files are fetched from and stored
// into archive directories.
//
// Files are addressed by archive name and file ID. Downloads land in the
// client's working directory under the name reported by the service, so
// cutout requests (which rename the result) remain transparent to the
// caller:
//
//	c, err := dataweb.NewClient(workdir, dataweb.WithProxyCert(certPath))
//	if err != nil {
//	    return err
//	}
//	path, err := c.Get(ctx, "JCMT", "jcmth20110811_00044_01_reduced001_nit_000")
package dataweb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBaseURL is the public endpoint of the archive data web service.
const DefaultBaseURL = "https://www.cadc-ccda.hia-iha.nrc-cnrc.gc.ca/data/pub"

// Client talks to the data web service. It is safe for concurrent use.
type Client struct {
	base    string
	httpc   *http.Client
	workdir string
	logger  *slog.Logger
}

// NewClient creates a client whose downloads are stored in workdir,
// which must already exist.
func NewClient(workdir string, opts ...Option) (*Client, error) {
	abs, err := filepath.Abs(os.ExpandEnv(workdir))
	if err != nil {
		return nil, fmt.Errorf("dataweb: workdir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dataweb: workdir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataweb: workdir %s: not a directory", abs)
	}

	c := &Client{
		base:    DefaultBaseURL,
		httpc:   http.DefaultClient,
		workdir: abs,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Workdir returns the directory downloads are stored in.
func (c *Client) Workdir() string {
	return c.workdir
}

// fileURL builds the service URL for a file. A file ID that is already a
// URL is used as-is, upgraded to https, matching how archive listings
// sometimes carry full URLs instead of bare IDs.
func (c *Client) fileURL(archive, fileID string) string {
	if strings.HasPrefix(fileID, "http") {
		return strings.Replace(fileID, "http:", "https:", 1)
	}
	return c.base + "/" + archive + "/" + url.PathEscape(fileID)
}

// Info reports whether the file exists and returns the response headers
// describing it. A missing file fails with ErrNotFound.
func (c *Client) Info(ctx context.Context, archive, fileID string) (http.Header, error) {
	u := c.fileURL(archive, fileID)
	c.logger.Debug("dataweb info", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Header.Clone(), nil
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, archive, fileID)
	default:
		return nil, fmt.Errorf("%w: %s/%s: %s", ErrFetch, archive, fileID, resp.Status)
	}
}

// Get downloads a file into the working directory and returns the path
// of the downloaded file. The file name is taken from the service's
// Content-Disposition header when present; compressed suffixes (.gz,
// .ftz) are stripped because the service decompresses on the fly.
func (c *Client) Get(ctx context.Context, archive, fileID string, opts ...GetOption) (string, error) {
	o := getOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	u := c.fileURL(archive, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	q := req.URL.Query()
	if o.headerOnly {
		// Headers of the primary HDU only; the cutout keeps the
		// response small.
		q.Set("fhead", "true")
		q.Set("cutout", "[0]")
	} else if o.cutout != "" {
		q.Set("cutout", o.cutout)
	}
	req.URL.RawQuery = q.Encode()
	c.logger.Debug("dataweb get", "url", req.URL.String())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s/%s", ErrNotFound, archive, fileID)
	default:
		return "", fmt.Errorf("%w: %s/%s: %s", ErrFetch, archive, fileID, resp.Status)
	}

	dest := o.path
	if dest == "" {
		dest = filepath.Join(c.workdir, downloadName(fileID, resp.Header))
	}

	if o.noClobber {
		if _, err := os.Stat(dest); err == nil {
			c.logger.Warn("dataweb get skipped, file exists", "path", dest)
			return dest, nil
		}
	}

	if err := c.save(dest, resp.Body, o); err != nil {
		return "", err
	}
	c.logger.Info("dataweb got file", "file_id", fileID, "path", dest)
	return dest, nil
}

func (c *Client) save(dest string, body io.Reader, o getOptions) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}

	var w io.Writer = f
	var verifier interface{ Verified() bool }
	if o.digest != "" {
		v := o.digest.Verifier()
		w = io.MultiWriter(f, v)
		verifier = v
	}

	if _, err := io.Copy(w, body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if verifier != nil && !verifier.Verified() {
		os.Remove(dest)
		return fmt.Errorf("%w: %s", ErrDigestMismatch, dest)
	}
	return nil
}

// Put uploads the file at path into the archive under fileID.
func (c *Client) Put(ctx context.Context, path, archive, fileID string, opts ...PutOption) error {
	o := putOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	abs, err := filepath.Abs(os.ExpandEnv(path))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	u := c.fileURL(archive, fileID)
	c.logger.Debug("dataweb put", "url", u, "path", abs)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, f)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	req.ContentLength = info.Size()
	if o.stream != "" {
		req.Header.Set("X-CADC-Stream", o.stream)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer drain(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: %s/%s: %s", ErrStore, archive, fileID, resp.Status)
	}
	return nil
}

// Delete removes a file from the archive.
func (c *Client) Delete(ctx context.Context, archive, fileID string) error {
	u := c.fileURL(archive, fileID)
	c.logger.Debug("dataweb delete", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	defer drain(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s/%s", ErrNotFound, archive, fileID)
	default:
		return fmt.Errorf("%w: %s/%s: %s", ErrStore, archive, fileID, resp.Status)
	}
}

// downloadName picks the on-disk name for a download. The service names
// cutouts and decompressed files through Content-Disposition; stored
// compression suffixes are stripped because content arrives unpacked.
func downloadName(fileID string, header http.Header) string {
	name := fileID
	if cd := header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := params["filename"]; fn != "" {
				name = fn
			}
		}
	}
	switch ext := filepath.Ext(name); ext {
	case ".gz":
		name = strings.TrimSuffix(name, ext)
	case ".ftz":
		name = strings.TrimSuffix(name, ext) + ".fits"
	}
	return filepath.Base(name)
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
