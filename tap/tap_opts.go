package tap

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
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
				return fmt.Errorf("tap: proxy cert: %w", err)
			}
			expanded = filepath.Join(home, expanded[2:])
		}
		cert, err := tls.LoadX509KeyPair(expanded, expanded)
		if err != nil {
			return fmt.Errorf("tap: proxy cert: %w", err)
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		c.httpc = &http.Client{Transport: transport}
		return nil
	}
}

// WithLogger sets the logger used for query tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}
