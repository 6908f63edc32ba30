package sync

import (
	"context"
	"strings"
	"testing"
)

func TestApplyFieldsUpdatesDescriptionEveryPass(t *testing.T) {
	engine, source, dest := testEngine()
	item, ticket := syncedItem(t, engine, source)

	item.Body = "updated body"
	if err := engine.ApplyFields(context.Background(), item, ticket, false); err != nil {
		t.Fatalf("apply fields: %v", err)
	}

	if !strings.Contains(dest.tickets[ticket.Key].Description, "wiki:updated body") {
		t.Errorf("description not refreshed: %q", dest.tickets[ticket.Key].Description)
	}
}

func TestApplyFieldsDoesNotOverwriteSummaryAfterCreation(t *testing.T) {
	engine, source, dest := testEngine()
	item, ticket := syncedItem(t, engine, source)

	// A Jira-side manual summary edit must survive later passes.
	manual := dest.tickets[ticket.Key]
	manual.Summary = "manually refined summary"
	dest.tickets[ticket.Key] = manual

	if err := engine.ApplyFields(context.Background(), item, ticket, false); err != nil {
		t.Fatalf("apply fields: %v", err)
	}
	if dest.tickets[ticket.Key].Summary != "manually refined summary" {
		t.Errorf("summary was clobbered: %q", dest.tickets[ticket.Key].Summary)
	}
}

func TestApplyFieldsSetsSummaryOnCreation(t *testing.T) {
	engine, source, dest := testEngine()
	item, ticket := syncedItem(t, engine, source)

	if err := engine.ApplyFields(context.Background(), item, ticket, true); err != nil {
		t.Fatalf("apply fields: %v", err)
	}
	if got := dest.tickets[ticket.Key].Summary; got != "GH #42: Crash on startup" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestSummaryForStripsKeySlug(t *testing.T) {
	item := testItem()
	item.Title = "Crash on startup (PROJ-77)"
	if got := summaryFor(item); got != "GH #42: Crash on startup" {
		t.Errorf("slug not stripped: %q", got)
	}

	item.IsPullRequest = true
	if got := summaryFor(item); got != "PR #42: Crash on startup" {
		t.Errorf("pull request prefix wrong: %q", got)
	}
}

func TestApplyFieldsTypeDriftCommentOnce(t *testing.T) {
	engine, source, dest := testEngine()
	item, ticket := syncedItem(t, engine, source)

	// Labels now resolve to New Feature, but the ticket stays a Bug.
	item.Labels = []string{"Type: New Feature"}

	for i := 0; i < 3; i++ {
		if err := engine.ApplyFields(context.Background(), item, ticket, false); err != nil {
			t.Fatalf("apply fields pass %d: %v", i, err)
		}
	}

	if got := dest.tickets[ticket.Key].IssueType; got != "Bug" {
		t.Errorf("ticket must never be retyped, got %q", got)
	}
	if n := countContaining(dest.comments[ticket.Key], "mirror:type-drift=New Feature"); n != 1 {
		t.Errorf("expected exactly one drift notice, got %d", n)
	}
}

func TestApplyFieldsNoDriftCommentWhenTypesAgree(t *testing.T) {
	engine, source, dest := testEngine()
	item, ticket := syncedItem(t, engine, source)

	if err := engine.ApplyFields(context.Background(), item, ticket, false); err != nil {
		t.Fatalf("apply fields: %v", err)
	}
	if n := countContaining(dest.comments[ticket.Key], "type-drift"); n != 0 {
		t.Errorf("unexpected drift notice")
	}
}

func TestApplyFieldsCloseAndReopenComments(t *testing.T) {
	engine, source, dest := testEngine()
	item, ticket := syncedItem(t, engine, source)

	item.Closed = true
	for i := 0; i < 3; i++ {
		if err := engine.ApplyFields(context.Background(), item, ticket, false); err != nil {
			t.Fatalf("apply fields (closed) pass %d: %v", i, err)
		}
	}
	if n := countContaining(dest.comments[ticket.Key], "has been closed upstream"); n != 1 {
		t.Errorf("expected exactly one close notice, got %d", n)
	}
	if !dest.links[ticket.Key][0].Resolved {
		t.Error("remote link should be marked resolved while the item is closed")
	}

	item.Closed = false
	for i := 0; i < 3; i++ {
		if err := engine.ApplyFields(context.Background(), item, ticket, false); err != nil {
			t.Fatalf("apply fields (reopened) pass %d: %v", i, err)
		}
	}
	if n := countContaining(dest.comments[ticket.Key], "has been reopened upstream"); n != 1 {
		t.Errorf("expected exactly one reopen notice, got %d", n)
	}
	if dest.links[ticket.Key][0].Resolved {
		t.Error("remote link should be unresolved again after reopening")
	}
}

func TestApplyFieldsRefreshesLinkTitle(t *testing.T) {
	engine, source, dest := testEngine()
	item, ticket := syncedItem(t, engine, source)

	item.Title = "Crash on startup, renamed (PROJ-77)"
	if err := engine.ApplyFields(context.Background(), item, ticket, false); err != nil {
		t.Fatalf("apply fields: %v", err)
	}
	if got := dest.links[ticket.Key][0].Title; got != item.Title {
		t.Errorf("link title not refreshed: %q", got)
	}
	// A pure title refresh is not a state transition.
	if n := countContaining(dest.comments[ticket.Key], "upstream"); n != 0 {
		t.Errorf("title refresh must not post a transition notice")
	}
}
