// Package models defines data structures shared across the application.
package models

import (
	"time"
)

// Item represents a GitHub issue or pull request being mirrored.
type Item struct {
	// Number is the item number in GitHub (e.g., 42)
	Number int

	// URL is the stable html URL of the item. It doubles as the durable
	// join key: the Jira remote link's globalId is always this URL.
	URL string

	// Title is the item's title. The only source-side field we ever write:
	// the Jira key is appended after first-time creation.
	Title string

	// Body is the full markdown body of the item
	Body string

	// Author is the GitHub login of the item's creator
	Author string

	// Labels is a slice of label names attached to the item
	Labels []string

	// IsPullRequest is true when the item is a pull request rather than an issue
	IsPullRequest bool

	// Closed is true when the item is not open
	Closed bool
}

// Comment represents a GitHub comment on a mirrored item.
type Comment struct {
	// ID is the stable numeric GitHub comment id
	ID int64

	// URL is the html URL of the comment
	URL string

	// Author is the GitHub login of the comment's creator
	Author string

	// Body is the markdown body of the comment
	Body string

	// Created is the comment creation time
	Created time.Time

	// Updated is the last-edit time; equal to Created if never edited
	Updated time.Time
}

// Ticket represents a Jira issue with the fields the sync engine reads.
type Ticket struct {
	// ID is the internal numeric Jira issue id
	ID string

	// Key is the project-scoped Jira issue key (e.g., "PROJ-123")
	Key string

	// Summary is the ticket's summary field
	Summary string

	// Description is the ticket's description in Jira wiki markup
	Description string

	// IssueType is the Jira issue type name (e.g., "Bug", "Task")
	IssueType string
}

// NewTicket carries the fields for a Jira issue creation.
type NewTicket struct {
	Summary     string
	Description string
	IssueType   string

	// Component is the optional project component name; empty means unset
	Component string

	// Reference is the source item URL stored in the custom reference field
	Reference string
}

// FieldUpdate carries a partial Jira issue field update. Nil fields are
// left untouched.
type FieldUpdate struct {
	Summary     *string
	Description *string
}

// RemoteLink represents a Jira remote link on a ticket.
type RemoteLink struct {
	// InternalID is the Jira-assigned numeric link id, needed for updates
	InternalID int

	// GlobalID is the deduplication key; always the source item URL
	GlobalID string

	// Title is the human-readable link title
	Title string

	// URL is the link target, the source item URL
	URL string

	// Resolved mirrors the source item's closed state and renders the
	// link struck-through in the Jira UI
	Resolved bool
}

// TicketComment represents a Jira comment on a ticket.
type TicketComment struct {
	// ID is the Jira comment id
	ID string

	// Body is the comment body in Jira wiki markup
	Body string
}

// ItemResult records the outcome of syncing a single item.
type ItemResult struct {
	// Number is the GitHub item number
	Number int

	// Key is the Jira issue key the item resolved to, if resolution succeeded
	Key string

	// Created is true when this run created the Jira issue
	Created bool

	// Err is the per-item failure, nil on success
	Err error
}

// BatchResult summarizes a sync run over a batch of items.
type BatchResult struct {
	Results []ItemResult
}

// Succeeded returns the number of items that synced without error.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of items whose sync failed.
func (r BatchResult) Failed() int {
	return len(r.Results) - r.Succeeded()
}
