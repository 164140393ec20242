// Package tap provides a client for the archive TAP (Table Access
// Protocol) web service, used to run ADQL queries against the metadata
// database:
//
//	c, err := tap.NewClient(tap.WithProxyCert(certPath))
//	if err != nil {
//	    return err
//	}
//	table, err := c.Query(ctx,
//	    "SELECT count(*) AS count FROM caom2.Observation WHERE collection = 'JCMT'")
//
// Results are requested in tab-separated form; the first row of the
// response names the columns.
package tap

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// DefaultBaseURL is the synchronous query endpoint of the archive TAP
// service.
const DefaultBaseURL = "https://www1.cadc-ccda.hia-iha.nrc-cnrc.gc.ca/tap/sync"

// ErrQuery is returned when the service rejects or fails a query.
var ErrQuery = errors.New("tap: query failed")

// whitespaceRegexp collapses runs of whitespace, including newlines in
// multi-line ADQL literals, into single spaces.
var whitespaceRegexp = regexp.MustCompile(`\s+`)

// Client runs ADQL queries against the TAP service. It is safe for
// concurrent use.
type Client struct {
	base   string
	httpc  *http.Client
	logger *slog.Logger
}

// NewClient creates a TAP client for the production service unless
// overridden by options.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		base:   DefaultBaseURL,
		httpc:  http.DefaultClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Table is a query result: named columns and rows of string values as
// returned by the service.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Column returns the index of the named column, or -1 when absent.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Query runs an ADQL query and returns the resulting table. The query
// may span multiple lines; whitespace is collapsed before submission.
func (c *Client) Query(ctx context.Context, adql string) (*Table, error) {
	query := whitespaceRegexp.ReplaceAllString(strings.TrimSpace(adql), " ")
	c.logger.Debug("tap query", "adql", query)

	params := url.Values{
		"REQUEST": []string{"doQuery"},
		"LANG":    []string{"ADQL"},
		"FORMAT":  []string{"tsv"},
		"QUERY":   []string{query},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("tap: build request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s: %s",
			ErrQuery, resp.Status, strings.TrimSpace(string(body)))
	}
	return parseTSV(resp.Body)
}

// parseTSV reads a tab-separated response whose first record names the
// columns.
func parseTSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tap: parse response: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tap: response carries no header row")
	}
	return &Table{Columns: records[0], Rows: records[1:]}, nil
}
