package sync

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// A Marker ties a mirrored Jira comment back to the GitHub comment it was
// created from. It is embedded in the comment body itself, so the join
// survives process restarts without any local storage.
type Marker struct {
	// CommentID is the GitHub comment id.
	CommentID int64

	// Updated is the GitHub comment's last-edit time at the moment the
	// mirrored body was written. A mismatch against the current source
	// comment means the body is stale.
	Updated time.Time

	// Deleted records that the source comment no longer exists. The
	// mirrored comment is annotated, never removed, so Jira keeps the
	// audit history.
	Deleted bool
}

var markerPattern = regexp.MustCompile(
	`\{color:#97a0af\}mirror:github-comment=(\d+);updated=([0-9TZz:.+-]+)(;deleted)?\{color\}`)

var driftPattern = regexp.MustCompile(`\{color:#97a0af\}mirror:type-drift=([^{}]+)\{color\}`)

// String renders the marker as a muted Jira wiki fragment.
func (m Marker) String() string {
	deleted := ""
	if m.Deleted {
		deleted = ";deleted"
	}
	return fmt.Sprintf("{color:#97a0af}mirror:github-comment=%d;updated=%s%s{color}",
		m.CommentID, m.Updated.UTC().Format(time.RFC3339), deleted)
}

// ParseMarker extracts the mirror marker from a Jira comment body. The
// second return value is false for comments we did not create (human
// comments, transition notices, drift notices).
func ParseMarker(body string) (Marker, bool) {
	match := markerPattern.FindStringSubmatch(body)
	if match == nil {
		return Marker{}, false
	}
	id, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return Marker{}, false
	}
	updated, err := time.Parse(time.RFC3339, match[2])
	if err != nil {
		return Marker{}, false
	}
	return Marker{CommentID: id, Updated: updated, Deleted: match[3] != ""}, true
}

// StripMarker removes the mirror marker from a comment body, returning the
// body as originally rendered.
func StripMarker(body string) string {
	return strings.TrimRight(markerPattern.ReplaceAllString(body, ""), "\n ")
}

// driftMarker renders the marker that deduplicates issue-type drift
// notices: one notice per drifted type name, ever.
func driftMarker(typeName string) string {
	return fmt.Sprintf("{color:#97a0af}mirror:type-drift=%s{color}", typeName)
}

// parseDriftMarker extracts the drifted type name from a drift notice body.
func parseDriftMarker(body string) (string, bool) {
	match := driftPattern.FindStringSubmatch(body)
	if match == nil {
		return "", false
	}
	return match[1], true
}
