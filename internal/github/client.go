// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/mirror/internal/config"
	"github.com/danielolaszy/mirror/internal/logging"
	syncerr "github.com/danielolaszy/mirror/internal/sync"
	"github.com/danielolaszy/mirror/pkg/models"
)

// Client encapsulates the GitHub API client, scoped to one repository.
type Client struct {
	client *github.Client
	owner  string
	repo   string
}

// NewClient creates a new GitHub API client for the configured repository.
// It initializes the client with the appropriate base URL, authenticates
// with the GitHub API, and tests the connection.
func NewClient(cfg *config.Config) (*Client, error) {
	token := cfg.GitHub.Token
	if token == "" {
		return nil, fmt.Errorf("github token not found in configuration")
	}

	parts := strings.Split(cfg.GitHub.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid repository format: %q, expected format: owner/repo", cfg.GitHub.Repository)
	}

	domain := cfg.GitHub.Domain
	if domain == "" {
		domain = "github.com"
	}

	var apiURL string
	if domain == "github.com" {
		apiURL = "https://api.github.com/"
	} else {
		apiURL = fmt.Sprintf("https://%s/api/v3/", domain)
	}

	logging.Info("github configuration",
		"domain", domain,
		"api_url", apiURL,
		"repository", cfg.GitHub.Repository,
		"token", logging.MaskSensitive(token))

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)

	if domain != "github.com" {
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}

		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}

	// Test the token
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("error testing github token: %w", err)
	}

	logging.Info("github authentication successful",
		"username", user.GetLogin())

	return &Client{
		client: client,
		owner:  parts[0],
		repo:   parts[1],
	}, nil
}

// GetItem fetches an issue or pull request by number and converts it to
// the internal model.
func (c *Client) GetItem(ctx context.Context, number int) (models.Item, error) {
	var issue *github.Issue
	err := c.retry(ctx, func() error {
		var err error
		issue, _, err = c.client.Issues.Get(ctx, c.owner, c.repo, number)
		return err
	})
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == 404 {
			return models.Item{}, &syncerr.NotFoundError{Resource: "github item", Key: fmt.Sprintf("#%d", number)}
		}
		return models.Item{}, fmt.Errorf("failed to get GitHub item #%d: %w", number, err)
	}

	return itemFromIssue(issue), nil
}

// ListComments returns the item's comments in creation order, paginating
// through the full history.
func (c *Client) ListComments(ctx context.Context, number int) ([]models.Comment, error) {
	opts := &github.IssueListCommentsOptions{
		Sort:      github.String("created"),
		Direction: github.String("asc"),
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var result []models.Comment
	for {
		var comments []*github.IssueComment
		var resp *github.Response
		err := c.retry(ctx, func() error {
			var err error
			comments, resp, err = c.client.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch comments for #%d: %w", number, err)
		}

		for _, comment := range comments {
			result = append(result, models.Comment{
				ID:      comment.GetID(),
				URL:     comment.GetHTMLURL(),
				Author:  comment.GetUser().GetLogin(),
				Body:    comment.GetBody(),
				Created: comment.GetCreatedAt(),
				Updated: comment.GetUpdatedAt(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

// UpdateItemTitle replaces the item's title. Edits are retried with
// backoff; a title update is idempotent, so a retried edit cannot
// duplicate anything.
func (c *Client) UpdateItemTitle(ctx context.Context, number int, title string) error {
	logging.Debug("updating item title",
		"item", number,
		"title", title)

	err := c.retry(ctx, func() error {
		_, _, err := c.client.Issues.Edit(ctx, c.owner, c.repo, number, &github.IssueRequest{
			Title: github.String(title),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update title of #%d: %w", number, err)
	}
	return nil
}

// ListOpenPullRequests returns all open pull requests, used by the
// scheduled sweep.
func (c *Client) ListOpenPullRequests(ctx context.Context) ([]models.Item, error) {
	opts := &github.PullRequestListOptions{
		State: "open",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var result []models.Item
	for {
		var prs []*github.PullRequest
		var resp *github.Response
		err := c.retry(ctx, func() error {
			var err error
			prs, resp, err = c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list open pull requests: %w", err)
		}

		for _, pr := range prs {
			labelNames := make([]string, 0, len(pr.Labels))
			for _, label := range pr.Labels {
				labelNames = append(labelNames, label.GetName())
			}
			result = append(result, models.Item{
				Number:        pr.GetNumber(),
				URL:           pr.GetHTMLURL(),
				Title:         pr.GetTitle(),
				Body:          pr.GetBody(),
				Author:        pr.GetUser().GetLogin(),
				Labels:        labelNames,
				IsPullRequest: true,
				Closed:        pr.GetState() != "open",
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

// retry runs op, retrying rate-limited calls with exponential backoff.
// Other errors fail immediately.
func (c *Client) retry(ctx context.Context, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var rateErr *github.RateLimitError
		var abuseErr *github.AbuseRateLimitError
		if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
			logging.Warn("github rate limited, backing off", "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

func itemFromIssue(issue *github.Issue) models.Item {
	labelNames := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labelNames = append(labelNames, label.GetName())
	}

	return models.Item{
		Number:        issue.GetNumber(),
		URL:           issue.GetHTMLURL(),
		Title:         issue.GetTitle(),
		Body:          issue.GetBody(),
		Author:        issue.GetUser().GetLogin(),
		Labels:        labelNames,
		IsPullRequest: issue.PullRequestLinks != nil,
		Closed:        issue.GetState() != "open",
	}
}
