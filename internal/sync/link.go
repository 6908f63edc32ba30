package sync

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/danielolaszy/mirror/internal/logging"
	"github.com/danielolaszy/mirror/pkg/models"
)

// titleKeyPattern matches a title that already ends with a parenthesized
// Jira key, e.g. "Fix crash on boot (PROJ-77)". We match any key, not just
// the configured project's, because the Jira issue may have been moved.
var titleKeyPattern = regexp.MustCompile(`\([A-Z][A-Z0-9]*-\d+\)\s*$`)

// ResolveOrCreate finds the Jira ticket linked to the item, creating it if
// none exists. The returned bool is true when this call created the ticket.
//
// Lookup and creation are two separate Jira calls, so this is
// search-then-act: the environment's concurrency group must serialize runs
// that can touch the same items. If the invariant is ever violated and two
// tickets claim the same globalId, the lookup fails with
// AmbiguousLinkError rather than guessing.
func (e *Engine) ResolveOrCreate(ctx context.Context, item models.Item) (models.Ticket, bool, error) {
	keys, err := e.dest.FindIssueKeysByGlobalID(ctx, item.URL)
	if err != nil {
		return models.Ticket{}, false, fmt.Errorf("remote link search: %w", err)
	}

	if len(keys) > 1 {
		return models.Ticket{}, false, &AmbiguousLinkError{GlobalID: item.URL, Keys: keys}
	}

	if len(keys) == 1 {
		ticket, err := e.dest.GetIssue(ctx, keys[0])
		if err != nil {
			return models.Ticket{}, false, fmt.Errorf("fetching linked ticket %s: %w", keys[0], err)
		}
		logging.Debug("item already linked",
			"item", item.Number,
			"ticket", ticket.Key)
		return ticket, false, nil
	}

	ticket, err := e.createTicket(ctx, item)
	if err != nil {
		return models.Ticket{}, false, err
	}

	return ticket, true, nil
}

// createTicket creates the Jira issue, attaches the remote link, and
// appends the new key to the GitHub title. The link creation can fail after
// the issue creation succeeded, leaving an unlinked ticket; the reference
// field lookup (see the status command) exposes those for manual repair.
func (e *Engine) createTicket(ctx context.Context, item models.Item) (models.Ticket, error) {
	issueType, err := e.resolveCreateIssueType(ctx, item)
	if err != nil {
		return models.Ticket{}, err
	}

	component := ""
	if e.component != "" {
		components, err := e.dest.ProjectComponents(ctx)
		if err != nil {
			return models.Ticket{}, fmt.Errorf("listing project components: %w", err)
		}
		if !containsFold(components, e.component) {
			return models.Ticket{}, &ValidationError{Field: "component", Value: e.component, Project: e.project}
		}
		component = e.component
	}

	ticket, err := e.dest.CreateIssue(ctx, models.NewTicket{
		Summary:     summaryFor(item),
		Description: e.describeItem(item),
		IssueType:   issueType,
		Component:   component,
		Reference:   item.URL,
	})
	if err != nil {
		return models.Ticket{}, fmt.Errorf("creating ticket: %w", err)
	}

	logging.Info("created ticket",
		"item", item.Number,
		"ticket", ticket.Key,
		"issue_type", issueType)

	err = e.dest.AddRemoteLink(ctx, ticket.Key, models.RemoteLink{
		GlobalID: item.URL,
		Title:    item.Title,
		URL:      item.URL,
		Resolved: item.Closed,
	})
	if err != nil {
		return models.Ticket{}, fmt.Errorf("linking ticket %s: %w", ticket.Key, err)
	}

	if err := e.appendKeyToTitle(ctx, item, ticket.Key); err != nil {
		return models.Ticket{}, err
	}

	return ticket, nil
}

// resolveCreateIssueType maps the item's labels to an available issue type
// and verifies the result exists in the project. A label match is valid by
// construction; only the fallback can name a type the project lacks.
func (e *Engine) resolveCreateIssueType(ctx context.Context, item models.Item) (string, error) {
	available, err := e.dest.ProjectIssueTypes(ctx)
	if err != nil {
		return "", fmt.Errorf("listing issue types: %w", err)
	}

	issueType := ResolveIssueType(item.Labels, available, e.fallback)
	if !containsFold(available, issueType) {
		return "", &ValidationError{Field: "issue type", Value: issueType, Project: e.project}
	}
	return issueType, nil
}

// appendKeyToTitle appends " (KEY)" to the GitHub title unless a key slug
// is already present, which guards against double-appending when a retry
// re-runs creation steps.
func (e *Engine) appendKeyToTitle(ctx context.Context, item models.Item, key string) error {
	if titleKeyPattern.MatchString(item.Title) {
		logging.Debug("title already carries a ticket key, not appending",
			"item", item.Number,
			"title", item.Title)
		return nil
	}

	newTitle := fmt.Sprintf("%s (%s)", item.Title, key)
	if err := e.source.UpdateItemTitle(ctx, item.Number, newTitle); err != nil {
		return fmt.Errorf("appending %s to title of #%d: %w", key, item.Number, err)
	}
	return nil
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
