package dupegraph

import (
	"errors"
	"fmt"
)

// InvariantError reports a condition that indicates a scheduler or indexing
// bug rather than a recoverable filesystem fault: a classification
// fallthrough, a missing content-index entry for a successfully hashed file,
// or a path contributed to a hash bucket twice. The run is not terminated in
// production; the violating job is aborted and the violation is counted so
// tests and callers can treat any occurrence as a failure.
type InvariantError struct {
	Op     string // operation that detected the violation
	Path   string // path involved, if any
	Detail string
}

func (e *InvariantError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invariant violation in %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("invariant violation in %s for %s: %s", e.Op, e.Path, e.Detail)
}

// IsInvariantError reports whether err (or anything it wraps) is an
// invariant violation.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
