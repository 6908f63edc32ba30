// Package jira provides the destination-tracker client for the mirror.
package jira

import (
	"context"
	"fmt"
	"regexp"

	jira "github.com/andygrunwald/go-jira"
	"github.com/cenkalti/backoff/v4"
	"github.com/trivago/tgo/tcontainer"

	"github.com/danielolaszy/mirror/internal/config"
	"github.com/danielolaszy/mirror/internal/logging"
	syncerr "github.com/danielolaszy/mirror/internal/sync"
	"github.com/danielolaszy/mirror/pkg/models"
)

// relationship is the remote link relationship label shown in the Jira UI.
const relationship = "mirrored from"

var customFieldID = regexp.MustCompile(`\d+$`)

// Client handles interactions with the JIRA API for one project.
type Client struct {
	client         *jira.Client
	project        string
	referenceField string

	// Project metadata rarely changes; cache it for the run.
	issueTypes []string
	components []string
}

// NewClient creates a new JIRA client from configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}

	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}

	client, err := jira.NewClient(tp.Client(), cfg.Jira.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create JIRA client: %w", err)
	}

	logging.Info("jira configuration",
		"url", cfg.Jira.BaseURL,
		"project", cfg.Jira.Project,
		"reference_field", cfg.Jira.ReferenceField,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	return &Client{
		client:         client,
		project:        cfg.Jira.Project,
		referenceField: cfg.Jira.ReferenceField,
	}, nil
}

// FindIssueKeysByGlobalID returns the keys of issues carrying a remote link
// with the given globalId, most recently updated first.
func (c *Client) FindIssueKeysByGlobalID(ctx context.Context, globalID string) ([]string, error) {
	jql := fmt.Sprintf(`issue in issuesWithRemoteLinksByGlobalId(%q) ORDER BY updated DESC`, globalID)
	logging.Debug("remote link lookup", "jql", jql)

	var issues []jira.Issue
	err := c.retry(ctx, func() (*jira.Response, error) {
		var resp *jira.Response
		var err error
		issues, resp, err = c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
			MaxResults: 10,
			Fields:     []string{"key"},
		})
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("remote link search failed: %w", err)
	}

	keys := make([]string, 0, len(issues))
	for _, issue := range issues {
		keys = append(keys, issue.Key)
	}
	return keys, nil
}

// FindIssueKeysByReference returns the keys of issues whose custom
// reference field holds the given source URL. Not used by the sync path;
// this is the manual-repair lookup for tickets left unlinked when a remote
// link creation failed after the issue creation succeeded.
func (c *Client) FindIssueKeysByReference(ctx context.Context, reference string) ([]string, error) {
	jql := fmt.Sprintf(`project = %s AND cf[%s] ~ %q ORDER BY created DESC`,
		c.project, customFieldID.FindString(c.referenceField), reference)

	var issues []jira.Issue
	err := c.retry(ctx, func() (*jira.Response, error) {
		var resp *jira.Response
		var err error
		issues, resp, err = c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
			MaxResults: 10,
			Fields:     []string{"key"},
		})
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("reference field search failed: %w", err)
	}

	keys := make([]string, 0, len(issues))
	for _, issue := range issues {
		keys = append(keys, issue.Key)
	}
	return keys, nil
}

// CountMirrored returns how many issues in the project carry the custom
// reference field, i.e. were created by the mirror.
func (c *Client) CountMirrored(ctx context.Context) (int, error) {
	jql := fmt.Sprintf(`project = %s AND cf[%s] is not EMPTY`,
		c.project, customFieldID.FindString(c.referenceField))

	total := 0
	err := c.retry(ctx, func() (*jira.Response, error) {
		_, resp, err := c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{
			MaxResults: 1,
			Fields:     []string{"key"},
		})
		if resp != nil {
			total = resp.Total
		}
		return resp, err
	})
	if err != nil {
		return 0, fmt.Errorf("mirrored issue count failed: %w", err)
	}
	return total, nil
}

// GetIssue fetches a ticket by key.
func (c *Client) GetIssue(ctx context.Context, key string) (models.Ticket, error) {
	var issue *jira.Issue
	err := c.retry(ctx, func() (*jira.Response, error) {
		var resp *jira.Response
		var err error
		issue, resp, err = c.client.Issue.GetWithContext(ctx, key, &jira.GetQueryOptions{
			Fields: "summary,description,issuetype",
		})
		return resp, err
	})
	if err != nil {
		return models.Ticket{}, fmt.Errorf("failed to get ticket %s: %w", key, err)
	}

	return models.Ticket{
		ID:          issue.ID,
		Key:         issue.Key,
		Summary:     issue.Fields.Summary,
		Description: issue.Fields.Description,
		IssueType:   issue.Fields.Type.Name,
	}, nil
}

// CreateIssue creates a ticket in the configured project. Never retried:
// a blind re-create could produce a duplicate; recovery is by lookup.
func (c *Client) CreateIssue(ctx context.Context, fields models.NewTicket) (models.Ticket, error) {
	issueFields := &jira.IssueFields{
		Project: jira.Project{
			Key: c.project,
		},
		Summary:     fields.Summary,
		Description: fields.Description,
		Type: jira.IssueType{
			Name: fields.IssueType,
		},
	}

	if fields.Component != "" {
		issueFields.Components = []*jira.Component{{Name: fields.Component}}
	}

	if fields.Reference != "" {
		issueFields.Unknowns = tcontainer.NewMarshalMap()
		issueFields.Unknowns[c.referenceField] = fields.Reference
	}

	created, _, err := c.client.Issue.CreateWithContext(ctx, &jira.Issue{Fields: issueFields})
	if err != nil {
		return models.Ticket{}, fmt.Errorf("failed to create ticket: %w", err)
	}

	return models.Ticket{
		ID:          created.ID,
		Key:         created.Key,
		Summary:     fields.Summary,
		Description: fields.Description,
		IssueType:   fields.IssueType,
	}, nil
}

// UpdateIssueFields applies a partial field update.
func (c *Client) UpdateIssueFields(ctx context.Context, key string, update models.FieldUpdate) error {
	fields := map[string]interface{}{}
	if update.Summary != nil {
		fields["summary"] = *update.Summary
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}
	if len(fields) == 0 {
		return nil
	}

	_, err := c.client.Issue.UpdateIssueWithContext(ctx, key, map[string]interface{}{"fields": fields})
	if err != nil {
		return fmt.Errorf("failed to update ticket %s: %w", key, err)
	}
	return nil
}

// AddRemoteLink attaches a remote link to a ticket. The globalId is the
// source item URL, which lets Jira deduplicate the link itself.
func (c *Client) AddRemoteLink(ctx context.Context, key string, link models.RemoteLink) error {
	_, _, err := c.client.Issue.AddRemoteLinkWithContext(ctx, key, &jira.RemoteLink{
		GlobalID:     link.GlobalID,
		Relationship: relationship,
		Object: &jira.RemoteLinkObject{
			URL:   link.URL,
			Title: link.Title,
			Status: &jira.RemoteLinkStatus{
				Resolved: link.Resolved,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote link to %s: %w", key, err)
	}
	return nil
}

// ListRemoteLinks returns all remote links on a ticket.
func (c *Client) ListRemoteLinks(ctx context.Context, key string) ([]models.RemoteLink, error) {
	var links *[]jira.RemoteLink
	err := c.retry(ctx, func() (*jira.Response, error) {
		var resp *jira.Response
		var err error
		links, resp, err = c.client.Issue.GetRemoteLinksWithContext(ctx, key)
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list remote links on %s: %w", key, err)
	}

	var result []models.RemoteLink
	for _, link := range *links {
		converted := models.RemoteLink{
			InternalID: link.ID,
			GlobalID:   link.GlobalID,
		}
		if link.Object != nil {
			converted.URL = link.Object.URL
			converted.Title = link.Object.Title
			if link.Object.Status != nil {
				converted.Resolved = link.Object.Status.Resolved
			}
		}
		result = append(result, converted)
	}
	return result, nil
}

// UpdateRemoteLink rewrites an existing remote link in place.
func (c *Client) UpdateRemoteLink(ctx context.Context, key string, link models.RemoteLink) error {
	_, err := c.client.Issue.UpdateRemoteLinkWithContext(ctx, key, link.InternalID, &jira.RemoteLink{
		GlobalID:     link.GlobalID,
		Relationship: relationship,
		Object: &jira.RemoteLinkObject{
			URL:   link.URL,
			Title: link.Title,
			Status: &jira.RemoteLinkStatus{
				Resolved: link.Resolved,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update remote link on %s: %w", key, err)
	}
	return nil
}

// ProjectIssueTypes returns the issue type names available in the project.
func (c *Client) ProjectIssueTypes(ctx context.Context) ([]string, error) {
	if c.issueTypes != nil {
		return c.issueTypes, nil
	}
	if err := c.loadProjectMetadata(ctx); err != nil {
		return nil, err
	}
	return c.issueTypes, nil
}

// ProjectComponents returns the component names available in the project.
func (c *Client) ProjectComponents(ctx context.Context) ([]string, error) {
	if c.components != nil {
		return c.components, nil
	}
	if err := c.loadProjectMetadata(ctx); err != nil {
		return nil, err
	}
	return c.components, nil
}

func (c *Client) loadProjectMetadata(ctx context.Context) error {
	var project *jira.Project
	err := c.retry(ctx, func() (*jira.Response, error) {
		var resp *jira.Response
		var err error
		project, resp, err = c.client.Project.GetWithContext(ctx, c.project)
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("failed to get project %s: %w", c.project, err)
	}

	c.issueTypes = make([]string, 0, len(project.IssueTypes))
	for _, issueType := range project.IssueTypes {
		c.issueTypes = append(c.issueTypes, issueType.Name)
	}

	c.components = make([]string, 0, len(project.Components))
	for _, component := range project.Components {
		c.components = append(c.components, component.Name)
	}

	logging.Debug("loaded project metadata",
		"project", c.project,
		"issue_types", c.issueTypes,
		"components", c.components)
	return nil
}

// ListComments returns all comments on a ticket in creation order.
func (c *Client) ListComments(ctx context.Context, key string) ([]models.TicketComment, error) {
	var issue *jira.Issue
	err := c.retry(ctx, func() (*jira.Response, error) {
		var resp *jira.Response
		var err error
		issue, resp, err = c.client.Issue.GetWithContext(ctx, key, &jira.GetQueryOptions{
			Fields: "comment",
		})
		return resp, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments on %s: %w", key, err)
	}

	var result []models.TicketComment
	if issue.Fields != nil && issue.Fields.Comments != nil {
		for _, comment := range issue.Fields.Comments.Comments {
			result = append(result, models.TicketComment{
				ID:   comment.ID,
				Body: comment.Body,
			})
		}
	}
	return result, nil
}

// AddComment adds a comment to a ticket.
func (c *Client) AddComment(ctx context.Context, key string, body string) error {
	_, _, err := c.client.Issue.AddCommentWithContext(ctx, key, &jira.Comment{Body: body})
	if err != nil {
		return fmt.Errorf("failed to add comment to %s: %w", key, err)
	}
	return nil
}

// UpdateComment replaces the body of an existing comment.
func (c *Client) UpdateComment(ctx context.Context, key string, commentID string, body string) error {
	_, _, err := c.client.Issue.UpdateCommentWithContext(ctx, key, &jira.Comment{
		ID:   commentID,
		Body: body,
	})
	if err != nil {
		return fmt.Errorf("failed to update comment %s on %s: %w", commentID, key, err)
	}
	return nil
}

// retry runs a read call, backing off on 429 responses. Mutations are
// deliberately not routed through here.
func (c *Client) retry(ctx context.Context, op func() (*jira.Response, error)) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	return backoff.Retry(func() error {
		resp, err := op()
		if err == nil {
			return nil
		}
		if resp != nil && resp.StatusCode == 429 {
			logging.Warn("jira rate limited, backing off")
			return &syncerr.RateLimitedError{}
		}
		return backoff.Permanent(err)
	}, b)
}
