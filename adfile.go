package caomtools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/eaobservatory/caomtools/dataweb"
)

// adURIRegexp matches one archive URI per line in an AD file, e.g.
//
//	ad:JCMT/jcmth20110811_00044_01_reduced001_nit_000  Reduced ACSIS file
//
// Anything after the URI is ignored, and lines that do not match are
// skipped entirely.
var adURIRegexp = regexp.MustCompile(`ad:([A-Z]+)/([a-zA-Z0-9._-]+)`)

// ADContainer holds members that live in a remote archive directory,
// listed by a text file of ad: URIs. Every URI is verified against the
// data web service at construction; members are downloaded into the
// client's working directory on Fetch and deleted again on Release.
//
// ADContainer is safe for concurrent use, and concurrent fetches of the
// same member share a single download.
type ADContainer struct {
	name   string
	client *dataweb.Client

	headerOnly bool

	mu       sync.Mutex
	members  members
	archives map[string]string // member ID -> archive name
	fetched  map[string]string // member ID -> downloaded path

	group singleflight.Group
}

// NewADContainer creates a container from the AD file at adPath. To keep
// AD files distinguishable from other text files the path must have the
// ".ad" extension. Members are listed in file order.
//
// Each URI in the file is checked for existence via client; a URI the
// service does not know fails construction with ErrRemoteFetch.
func NewADContainer(ctx context.Context, adPath string, client *dataweb.Client, opts ...Option) (*ADContainer, error) {
	o := applyOptions(opts)

	abs, err := expandPath(adPath)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(abs) != ".ad" {
		return nil, fmt.Errorf("ad container %s: not an AD file (expected .ad extension)", abs)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("ad container: %w", err)
	}
	defer f.Close()

	c := &ADContainer{
		name:       filepath.Base(abs),
		client:     client,
		headerOnly: o.headerOnly,
		members:    newMembers(),
		archives:   make(map[string]string),
		fetched:    make(map[string]string),
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := adURIRegexp.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		archive, fileID := m[1], m[2]

		header, err := client.Info(ctx, archive, fileID)
		if err != nil {
			return nil, fmt.Errorf("%w: ad:%s/%s: %v", ErrRemoteFetch, archive, fileID, err)
		}
		if !o.include(dispositionName(header.Get("Content-Disposition"), fileID)) {
			continue
		}
		if c.members.contains(fileID) {
			return nil, fmt.Errorf("%w: %s in %s", ErrDuplicateMember, fileID, abs)
		}
		c.members.add(fileID, "")
		c.archives[fileID] = archive
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ad container %s: %w", abs, err)
	}

	if c.members.len() == 0 {
		return nil, fmt.Errorf("%w: AD file %s contains no valid URIs", ErrEmptyContainer, abs)
	}
	return c, nil
}

// Name returns the base name of the AD file.
func (c *ADContainer) Name() string {
	return c.name
}

// Members returns the member IDs in AD file order.
func (c *ADContainer) Members() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.members.list()
}

// Fetch downloads the member into the working directory and returns the
// downloaded path. Download failures wrap ErrRemoteFetch.
func (c *ADContainer) Fetch(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	archive, ok := c.archives[id]
	if !ok {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %s in AD file %s", ErrNotFound, id, c.name)
	}
	if path, ok := c.fetched[id]; ok {
		c.mu.Unlock()
		return path, nil
	}
	c.mu.Unlock()

	path, err, _ := c.group.Do(id, func() (any, error) {
		var opts []dataweb.GetOption
		if c.headerOnly {
			opts = append(opts, dataweb.GetWithHeaderOnly())
		}
		path, err := c.client.Get(ctx, archive, id, opts...)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.members.add(id, path)
		c.fetched[id] = path
		c.mu.Unlock()
		return path, nil
	})
	if err != nil {
		if errors.Is(err, dataweb.ErrNotFound) {
			return "", fmt.Errorf("%w: %s/%s: %v", ErrNotFound, archive, id, err)
		}
		return "", fmt.Errorf("%w: %s/%s: %v", ErrRemoteFetch, archive, id, err)
	}
	return path.(string), nil
}

// Release deletes the downloaded copy of the member, if present.
func (c *ADContainer) Release(id string) error {
	c.mu.Lock()
	path, ok := c.fetched[id]
	if ok {
		delete(c.fetched, id)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release %s: %w", id, err)
	}
	return nil
}

// Close deletes any downloads that were fetched but never released.
func (c *ADContainer) Close() error {
	c.mu.Lock()
	paths := make([]string, 0, len(c.fetched))
	for id, path := range c.fetched {
		paths = append(paths, path)
		delete(c.fetched, id)
	}
	c.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// dispositionName extracts the file name from a Content-Disposition
// header, falling back to the file ID.
func dispositionName(cd, fileID string) string {
	if cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := params["filename"]; fn != "" {
				return fn
			}
		}
	}
	return fileID
}

var _ Container = (*ADContainer)(nil)
