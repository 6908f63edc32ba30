package sync

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/danielolaszy/mirror/internal/logging"
	"github.com/danielolaszy/mirror/pkg/models"
)

// summarySlugPattern strips a mirrored Jira key slug out of a GitHub title
// before it is used as a Jira summary. Any key is stripped, not just the
// configured project's, since the Jira issue may have moved.
var summarySlugPattern = regexp.MustCompile(` \([A-Z][A-Z0-9]*-\d+\)`)

// ApplyFields pushes the item's current field state onto the ticket:
// description on every pass, summary only when the ticket was just created
// (later source titles embed the Jira key and may carry manual Jira-side
// edits we must not clobber). It also posts the type-drift and open/closed
// transition notices. Issue type and component are never changed after
// creation; Jira cannot safely retype across workflows.
func (e *Engine) ApplyFields(ctx context.Context, item models.Item, ticket models.Ticket, created bool) error {
	update := models.FieldUpdate{}

	description := e.describeItem(item)
	update.Description = &description

	if created {
		summary := summaryFor(item)
		update.Summary = &summary
	}

	if err := e.dest.UpdateIssueFields(ctx, ticket.Key, update); err != nil {
		return fmt.Errorf("field update: %w", err)
	}

	if !created {
		if err := e.noteTypeDrift(ctx, item, ticket); err != nil {
			return err
		}
	}

	if err := e.syncLinkState(ctx, item, ticket); err != nil {
		return err
	}

	return nil
}

// summaryFor builds the Jira summary: "GH #42: <title>" for issues,
// "PR #42: <title>" for pull requests, with any key slug stripped.
func summaryFor(item models.Item) string {
	kind := "GH"
	if item.IsPullRequest {
		kind = "PR"
	}
	title := summarySlugPattern.ReplaceAllString(item.Title, "")
	return fmt.Sprintf("%s #%d: %s", kind, item.Number, title)
}

// describeItem renders the Jira description for an item.
func (e *Engine) describeItem(item models.Item) string {
	kind := "Issue"
	if item.IsPullRequest {
		kind = "Pull Request"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[GitHub %s|%s] from user @%s:\n\n", kind, item.URL, item.Author)
	b.WriteString(e.convert(item.Body))
	b.WriteString("\n\n----\nNotes:\n")
	b.WriteString("* Do not edit this description, it is updated automatically.\n")
	b.WriteString("* Please interact on GitHub where possible, changes will sync here.\n")
	if !item.IsPullRequest {
		fmt.Fprintf(&b, "* To close the GitHub issue from a commit, add {{Closes %s}} to the commit message.\n", item.URL)
	}
	return b.String()
}

// noteTypeDrift posts a comment when the item's current labels would
// resolve to a different issue type than the ticket carries. The ticket is
// never retyped. The notice embeds a drift marker so it is posted at most
// once per drifted type, no matter how many later passes see the same drift.
func (e *Engine) noteTypeDrift(ctx context.Context, item models.Item, ticket models.Ticket) error {
	available, err := e.dest.ProjectIssueTypes(ctx)
	if err != nil {
		return fmt.Errorf("listing issue types: %w", err)
	}

	resolved := ResolveIssueType(item.Labels, available, e.fallback)
	if strings.EqualFold(resolved, ticket.IssueType) {
		return nil
	}

	comments, err := e.dest.ListComments(ctx, ticket.Key)
	if err != nil {
		return fmt.Errorf("listing comments: %w", err)
	}
	for _, c := range comments {
		if drifted, ok := parseDriftMarker(c.Body); ok && strings.EqualFold(drifted, resolved) {
			return nil
		}
	}

	logging.Info("issue type drift detected",
		"item", item.Number,
		"ticket", ticket.Key,
		"ticket_type", ticket.IssueType,
		"resolved_type", resolved)

	body := fmt.Sprintf(
		"The labels on the [GitHub item|%s] now map to issue type *%s*, but this ticket was created as *%s*. "+
			"Issue types are not changed automatically; retype manually if needed.\n\n%s",
		item.URL, resolved, ticket.IssueType, driftMarker(resolved))
	if err := e.dest.AddComment(ctx, ticket.Key, body); err != nil {
		return fmt.Errorf("adding drift notice: %w", err)
	}
	return nil
}

// syncLinkState keeps the remote link's resolved flag in step with the
// item's open/closed state, posting one explanatory comment per
// transition. The flag doubles as the transition memory: once flipped, a
// retry sees no mismatch and posts nothing, so the comment stays unique.
// The ticket's own status is never transitioned.
func (e *Engine) syncLinkState(ctx context.Context, item models.Item, ticket models.Ticket) error {
	links, err := e.dest.ListRemoteLinks(ctx, ticket.Key)
	if err != nil {
		return fmt.Errorf("listing remote links: %w", err)
	}

	for _, link := range links {
		if link.GlobalID != item.URL {
			continue
		}
		if link.Resolved == item.Closed && link.Title == item.Title {
			return nil
		}

		if link.Resolved != item.Closed {
			verb := "closed"
			if !item.Closed {
				verb = "reopened"
			}
			kind := "issue"
			if item.IsPullRequest {
				kind = "PR"
			}
			body := fmt.Sprintf("The [GitHub %s|%s] has been %s upstream.", kind, item.URL, verb)
			if err := e.dest.AddComment(ctx, ticket.Key, body); err != nil {
				return fmt.Errorf("adding transition notice: %w", err)
			}
			logging.Info("source state transition mirrored",
				"item", item.Number,
				"ticket", ticket.Key,
				"state", verb)
		}

		link.Resolved = item.Closed
		link.Title = item.Title
		if err := e.dest.UpdateRemoteLink(ctx, ticket.Key, link); err != nil {
			return fmt.Errorf("updating remote link: %w", err)
		}
		return nil
	}

	logging.Warn("ticket has no remote link for item",
		"item", item.Number,
		"ticket", ticket.Key)
	return nil
}
