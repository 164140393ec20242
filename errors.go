package caomtools

import "errors"

// Sentinel errors for container operations.
var (
	// ErrNotFound is returned when a requested member is not in the container.
	ErrNotFound = errors.New("container: member not found")

	// ErrEmptyContainer is returned when a container is constructed from a
	// medium holding no eligible members.
	ErrEmptyContainer = errors.New("container: no eligible members")

	// ErrRemoteFetch is returned when fetching a member from a remote
	// archive fails.
	ErrRemoteFetch = errors.New("container: remote fetch failed")

	// ErrDuplicateMember is returned when two files in the same medium
	// resolve to the same member ID.
	ErrDuplicateMember = errors.New("container: duplicate member ID")
)
