package dataweb

import "errors"

// Sentinel errors for data web service operations.
var (
	// ErrNotFound is returned when a file does not exist in the archive.
	ErrNotFound = errors.New("dataweb: file not found")

	// ErrFetch is returned when a download or info request fails.
	ErrFetch = errors.New("dataweb: fetch failed")

	// ErrStore is returned when an upload or delete fails.
	ErrStore = errors.New("dataweb: store failed")

	// ErrDigestMismatch is returned when downloaded content does not
	// match its expected digest.
	ErrDigestMismatch = errors.New("dataweb: digest mismatch")
)
