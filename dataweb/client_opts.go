package dataweb

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL overrides the service endpoint. Useful for test servers
// and site-local mirrors.
func WithBaseURL(base string) Option {
	return func(c *Client) error {
		c.base = strings.TrimSuffix(base, "/")
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) error {
		if httpc != nil {
			c.httpc = httpc
		}
		return nil
	}
}

// WithProxyCert authenticates requests with the proxy certificate at
// path, conventionally $HOME/.ssl/cadcproxy.pem. The file must hold both
// the certificate and its private key in PEM form.
func WithProxyCert(path string) Option {
	return func(c *Client) error {
		expanded := os.ExpandEnv(path)
		if strings.HasPrefix(expanded, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("dataweb: proxy cert: %w", err)
			}
			expanded = filepath.Join(home, expanded[2:])
		}
		cert, err := tls.LoadX509KeyPair(expanded, expanded)
		if err != nil {
			return fmt.Errorf("dataweb: proxy cert: %w", err)
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		c.httpc = &http.Client{Transport: transport}
		return nil
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// GetOption configures a single Get call.
type GetOption func(*getOptions)

type getOptions struct {
	path       string
	headerOnly bool
	cutout     string
	noClobber  bool
	digest     digest.Digest
}

// GetWithPath stores the download at an explicit path instead of the
// working directory.
func GetWithPath(path string) GetOption {
	return func(o *getOptions) {
		o.path = path
	}
}

// GetWithHeaderOnly fetches only the headers of the primary HDU. The
// resulting partial FITS file is much smaller than the full download.
func GetWithHeaderOnly() GetOption {
	return func(o *getOptions) {
		o.headerOnly = true
	}
}

// GetWithCutout requests a cutout, e.g. "[1][1:100,1:200]". Beware that
// cutouts change the downloaded file name; use the path returned by Get.
func GetWithCutout(spec string) GetOption {
	return func(o *getOptions) {
		o.cutout = spec
	}
}

// GetWithNoClobber skips the download when the destination file already
// exists.
func GetWithNoClobber() GetOption {
	return func(o *getOptions) {
		o.noClobber = true
	}
}

// GetWithDigest verifies the downloaded content against the expected
// digest and fails with ErrDigestMismatch if it differs.
func GetWithDigest(d digest.Digest) GetOption {
	return func(o *getOptions) {
		o.digest = d
	}
}

// PutOption configures a single Put call.
type PutOption func(*putOptions)

type putOptions struct {
	stream string
}

// PutWithStream routes the upload into a named archive stream.
func PutWithStream(stream string) PutOption {
	return func(o *putOptions) {
		o.stream = stream
	}
}
