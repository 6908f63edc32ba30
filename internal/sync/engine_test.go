package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielolaszy/mirror/pkg/models"
)

// fakeSource is an in-memory SourceClient.
type fakeSource struct {
	items        map[int]models.Item
	comments     map[int][]models.Comment
	pullRequests []models.Item

	titleUpdates   map[int]string
	updateTitleErr error
	getItemErr     error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		items:        make(map[int]models.Item),
		comments:     make(map[int][]models.Comment),
		titleUpdates: make(map[int]string),
	}
}

func (f *fakeSource) GetItem(ctx context.Context, number int) (models.Item, error) {
	if f.getItemErr != nil {
		return models.Item{}, f.getItemErr
	}
	item, ok := f.items[number]
	if !ok {
		return models.Item{}, &NotFoundError{Resource: "github item", Key: fmt.Sprintf("#%d", number)}
	}
	return item, nil
}

func (f *fakeSource) ListComments(ctx context.Context, number int) ([]models.Comment, error) {
	return f.comments[number], nil
}

func (f *fakeSource) UpdateItemTitle(ctx context.Context, number int, title string) error {
	if f.updateTitleErr != nil {
		return f.updateTitleErr
	}
	f.titleUpdates[number] = title
	item := f.items[number]
	item.Title = title
	f.items[number] = item
	return nil
}

func (f *fakeSource) ListOpenPullRequests(ctx context.Context) ([]models.Item, error) {
	return f.pullRequests, nil
}

// fakeDest is an in-memory DestinationClient that behaves like a tiny Jira
// project, which lets the tests assert convergence rather than just call
// sequences.
type fakeDest struct {
	issueTypes []string
	components []string

	tickets  map[string]models.Ticket
	links    map[string][]models.RemoteLink
	comments map[string][]models.TicketComment
	nextKey  int
	nextID   int

	createCalls        int
	addCommentCalls    int
	updateCommentCalls int
	fieldUpdateCalls   int

	addLinkErr    error
	createErr     error
	getIssueErr   error
	addCommentErr error
}

func newFakeDest() *fakeDest {
	return &fakeDest{
		issueTypes: []string{"Bug", "New Feature", "Task"},
		components: []string{"Mirrored"},
		tickets:    make(map[string]models.Ticket),
		links:      make(map[string][]models.RemoteLink),
		comments:   make(map[string][]models.TicketComment),
		nextKey:    76,
	}
}

func (f *fakeDest) FindIssueKeysByGlobalID(ctx context.Context, globalID string) ([]string, error) {
	var keys []string
	for key, links := range f.links {
		for _, link := range links {
			if link.GlobalID == globalID {
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}

func (f *fakeDest) GetIssue(ctx context.Context, key string) (models.Ticket, error) {
	if f.getIssueErr != nil {
		return models.Ticket{}, f.getIssueErr
	}
	ticket, ok := f.tickets[key]
	if !ok {
		return models.Ticket{}, &NotFoundError{Resource: "ticket", Key: key}
	}
	return ticket, nil
}

func (f *fakeDest) CreateIssue(ctx context.Context, fields models.NewTicket) (models.Ticket, error) {
	f.createCalls++
	if f.createErr != nil {
		return models.Ticket{}, f.createErr
	}
	f.nextKey++
	key := fmt.Sprintf("PROJ-%d", f.nextKey)
	ticket := models.Ticket{
		ID:          fmt.Sprintf("1%04d", f.nextKey),
		Key:         key,
		Summary:     fields.Summary,
		Description: fields.Description,
		IssueType:   fields.IssueType,
	}
	f.tickets[key] = ticket
	return ticket, nil
}

func (f *fakeDest) UpdateIssueFields(ctx context.Context, key string, update models.FieldUpdate) error {
	f.fieldUpdateCalls++
	ticket, ok := f.tickets[key]
	if !ok {
		return &NotFoundError{Resource: "ticket", Key: key}
	}
	if update.Summary != nil {
		ticket.Summary = *update.Summary
	}
	if update.Description != nil {
		ticket.Description = *update.Description
	}
	f.tickets[key] = ticket
	return nil
}

func (f *fakeDest) AddRemoteLink(ctx context.Context, key string, link models.RemoteLink) error {
	if f.addLinkErr != nil {
		return f.addLinkErr
	}
	f.nextID++
	link.InternalID = f.nextID
	f.links[key] = append(f.links[key], link)
	return nil
}

func (f *fakeDest) ListRemoteLinks(ctx context.Context, key string) ([]models.RemoteLink, error) {
	return f.links[key], nil
}

func (f *fakeDest) UpdateRemoteLink(ctx context.Context, key string, link models.RemoteLink) error {
	for i, existing := range f.links[key] {
		if existing.InternalID == link.InternalID {
			f.links[key][i] = link
			return nil
		}
	}
	return &NotFoundError{Resource: "remote link", Key: key}
}

func (f *fakeDest) ProjectIssueTypes(ctx context.Context) ([]string, error) {
	return f.issueTypes, nil
}

func (f *fakeDest) ProjectComponents(ctx context.Context) ([]string, error) {
	return f.components, nil
}

func (f *fakeDest) ListComments(ctx context.Context, key string) ([]models.TicketComment, error) {
	return f.comments[key], nil
}

func (f *fakeDest) AddComment(ctx context.Context, key string, body string) error {
	f.addCommentCalls++
	if f.addCommentErr != nil {
		return f.addCommentErr
	}
	f.nextID++
	f.comments[key] = append(f.comments[key], models.TicketComment{
		ID:   fmt.Sprintf("%d", f.nextID),
		Body: body,
	})
	return nil
}

func (f *fakeDest) UpdateComment(ctx context.Context, key string, commentID string, body string) error {
	f.updateCommentCalls++
	for i, comment := range f.comments[key] {
		if comment.ID == commentID {
			f.comments[key][i].Body = body
			return nil
		}
	}
	return &NotFoundError{Resource: "comment", Key: commentID}
}

// testEngine wires an engine over fresh fakes with a marker-friendly
// identity converter.
func testEngine() (*Engine, *fakeSource, *fakeDest) {
	source := newFakeSource()
	dest := newFakeDest()
	engine := New(Options{
		Source:  source,
		Dest:    dest,
		Convert: func(s string) string { return "wiki:" + s },
		Project: "PROJ",
	})
	return engine, source, dest
}

func testItem() models.Item {
	return models.Item{
		Number: 42,
		URL:    "https://github.com/org/repo/issues/42",
		Title:  "Crash on startup",
		Body:   "# Crash\nSteps...",
		Author: "reporter",
		Labels: []string{"Type: Bug", "priority-high"},
	}
}

func testComment(id int64, body string, updated time.Time) models.Comment {
	return models.Comment{
		ID:      id,
		URL:     fmt.Sprintf("https://github.com/org/repo/issues/42#issuecomment-%d", id),
		Author:  "commenter",
		Body:    body,
		Created: updated,
		Updated: updated,
	}
}

func findMirrored(comments []models.TicketComment, id int64) (models.TicketComment, Marker, bool) {
	for _, c := range comments {
		if marker, ok := ParseMarker(c.Body); ok && marker.CommentID == id {
			return c, marker, true
		}
	}
	return models.TicketComment{}, Marker{}, false
}

func countContaining(comments []models.TicketComment, substr string) int {
	n := 0
	for _, c := range comments {
		if strings.Contains(c.Body, substr) {
			n++
		}
	}
	return n
}

var errBoom = errors.New("boom")
