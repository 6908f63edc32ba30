// Package sync implements the reconciliation engine that mirrors GitHub
// issues and pull requests into Jira. All sync state lives on the Jira
// side: remote links join tickets to items, and markers embedded in
// mirrored comment bodies join Jira comments to GitHub comments. A fresh
// run re-derives everything from those markers, so an aborted run followed
// by a new one converges.
package sync

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/danielolaszy/mirror/pkg/models"
)

// SourceClient is the read side of the mirror plus the single source-side
// mutation we perform (appending the Jira key to an item title).
type SourceClient interface {
	// GetItem fetches an issue or pull request by number.
	GetItem(ctx context.Context, number int) (models.Item, error)

	// ListComments returns the item's comments in creation order.
	ListComments(ctx context.Context, number int) ([]models.Comment, error)

	// UpdateItemTitle replaces the item's title.
	UpdateItemTitle(ctx context.Context, number int, title string) error

	// ListOpenPullRequests returns all open pull requests, used by the
	// scheduled sweep (fork PR events cannot trigger the workflow).
	ListOpenPullRequests(ctx context.Context) ([]models.Item, error)
}

// DestinationClient is the Jira capability surface the engine needs.
type DestinationClient interface {
	// FindIssueKeysByGlobalID returns the keys of issues carrying a remote
	// link with the given globalId, most recently updated first.
	FindIssueKeysByGlobalID(ctx context.Context, globalID string) ([]string, error)

	// GetIssue fetches a ticket by key.
	GetIssue(ctx context.Context, key string) (models.Ticket, error)

	// CreateIssue creates a ticket in the configured project.
	CreateIssue(ctx context.Context, fields models.NewTicket) (models.Ticket, error)

	// UpdateIssueFields applies a partial field update.
	UpdateIssueFields(ctx context.Context, key string, update models.FieldUpdate) error

	// AddRemoteLink attaches a remote link to a ticket.
	AddRemoteLink(ctx context.Context, key string, link models.RemoteLink) error

	// ListRemoteLinks returns all remote links on a ticket.
	ListRemoteLinks(ctx context.Context, key string) ([]models.RemoteLink, error)

	// UpdateRemoteLink rewrites an existing remote link.
	UpdateRemoteLink(ctx context.Context, key string, link models.RemoteLink) error

	// ProjectIssueTypes returns the issue type names available in the project.
	ProjectIssueTypes(ctx context.Context) ([]string, error)

	// ProjectComponents returns the component names available in the project.
	ProjectComponents(ctx context.Context) ([]string, error)

	// ListComments returns all comments on a ticket in creation order.
	ListComments(ctx context.Context, key string) ([]models.TicketComment, error)

	// AddComment adds a comment to a ticket.
	AddComment(ctx context.Context, key string, body string) error

	// UpdateComment replaces the body of an existing comment.
	UpdateComment(ctx context.Context, key string, commentID string, body string) error
}

// ConvertFunc renders GitHub markdown as Jira wiki markup. It must be pure:
// every body written to Jira goes through it.
type ConvertFunc func(markdown string) string

// Options configures an Engine.
type Options struct {
	Source  SourceClient
	Dest    DestinationClient
	Convert ConvertFunc

	// Project is the destination project key, used in error messages.
	Project string

	// Component is the optional component name set at creation time.
	Component string

	// FallbackIssueType is used when no label maps to an issue type.
	// Empty means "Task".
	FallbackIssueType string
}

// Engine drives the per-item pipeline: resolve-or-create the linked
// ticket, synchronize its fields, then reconcile comments.
type Engine struct {
	source    SourceClient
	dest      DestinationClient
	convert   ConvertFunc
	project   string
	component string
	fallback  string

	running atomic.Bool
}

// New creates an Engine from the given options.
func New(opts Options) *Engine {
	fallback := opts.FallbackIssueType
	if fallback == "" {
		fallback = DefaultIssueType
	}
	convert := opts.Convert
	if convert == nil {
		convert = func(s string) string { return s }
	}
	return &Engine{
		source:    opts.Source,
		dest:      opts.Dest,
		convert:   convert,
		project:   opts.Project,
		component: opts.Component,
		fallback:  fallback,
	}
}

// SyncItem runs the full pipeline for one item. Field updates that already
// applied before a failure are not rolled back; each step is idempotent, so
// a retry converges.
func (e *Engine) SyncItem(ctx context.Context, item models.Item) (models.ItemResult, error) {
	result := models.ItemResult{Number: item.Number}

	ticket, created, err := e.ResolveOrCreate(ctx, item)
	if err != nil {
		return result, fmt.Errorf("resolving ticket for #%d: %w", item.Number, err)
	}
	result.Key = ticket.Key
	result.Created = created

	if err := e.ApplyFields(ctx, item, ticket, created); err != nil {
		return result, fmt.Errorf("updating fields on %s: %w", ticket.Key, err)
	}

	if err := e.ReconcileComments(ctx, item, ticket); err != nil {
		return result, fmt.Errorf("reconciling comments on %s: %w", ticket.Key, err)
	}

	return result, nil
}
