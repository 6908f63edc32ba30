package sync

import (
	"errors"
	"fmt"
	"time"
)

// ErrSyncInProgress is returned when a run is started while another run is
// still executing in this process. Cross-process serialization is the
// responsibility of the environment's concurrency group; this guard only
// covers accidental in-process overlap.
var ErrSyncInProgress = errors.New("another sync run is already in progress")

// NotFoundError indicates a referenced source or destination record is
// absent. Fatal for the item being processed; the batch continues.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// AmbiguousLinkError indicates more than one Jira issue claims the same
// remote link globalId. This is never auto-resolved: picking one silently
// would hide a duplicated mirror, so the item fails until an operator
// removes the extra link.
type AmbiguousLinkError struct {
	GlobalID string
	Keys     []string
}

func (e *AmbiguousLinkError) Error() string {
	return fmt.Sprintf("remote link globalId %q is claimed by multiple issues: %v", e.GlobalID, e.Keys)
}

// ValidationError indicates a configured issue type or component does not
// exist in the destination project. Fatal for the item's creation.
type ValidationError struct {
	Field   string
	Value   string
	Project string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %q does not exist in project %q", e.Field, e.Value, e.Project)
}

// RateLimitedError indicates API throttling. The collaborator clients retry
// these with backoff; the engine never retries a mutation itself, because a
// blind re-create could duplicate a destination record.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}
