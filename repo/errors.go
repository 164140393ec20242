package repo

import (
	"fmt"
	"strings"
)

// ExitError reports a repository tool invocation that exited non-zero.
// The tool's stdout and stderr are carried verbatim so callers and log
// readers see exactly what the tool said.
type ExitError struct {
	Verb     string
	URI      string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ExitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "repo: %s %s: exit status %d", e.Verb, e.URI, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, ": %s", s)
	}
	if s := strings.TrimSpace(e.Stdout); s != "" {
		fmt.Fprintf(&b, ": %s", s)
	}
	return b.String()
}
