package sync

import (
	"context"
	"fmt"

	"github.com/danielolaszy/mirror/internal/logging"
	"github.com/danielolaszy/mirror/pkg/models"
)

// ReconcileComments replays the item's comment history onto the ticket:
// missing comments are mirrored, edited comments are rewritten in place,
// and comments deleted upstream are annotated, never removed, so the ticket
// keeps the audit history including the fact of the deletion.
//
// The join key is the marker embedded in each mirrored body, so the diff is
// computed entirely from destination state. Running this twice with no
// source changes performs no writes.
func (e *Engine) ReconcileComments(ctx context.Context, item models.Item, ticket models.Ticket) error {
	sourceComments, err := e.source.ListComments(ctx, item.Number)
	if err != nil {
		return fmt.Errorf("listing source comments: %w", err)
	}

	ticketComments, err := e.dest.ListComments(ctx, ticket.Key)
	if err != nil {
		return fmt.Errorf("listing ticket comments: %w", err)
	}

	type mirrored struct {
		comment models.TicketComment
		marker  Marker
	}
	byID := make(map[int64]mirrored, len(ticketComments))
	for _, tc := range ticketComments {
		if marker, ok := ParseMarker(tc.Body); ok {
			byID[marker.CommentID] = mirrored{comment: tc, marker: marker}
		}
	}

	sourceIDs := make(map[int64]bool, len(sourceComments))

	// Source order is creation order, which keeps newly mirrored comments
	// readable as a history on the Jira side.
	for _, sc := range sourceComments {
		sourceIDs[sc.ID] = true

		m, ok := byID[sc.ID]
		if !ok {
			body := e.renderComment(sc) + "\n\n" + Marker{CommentID: sc.ID, Updated: sc.Updated}.String()
			if err := e.dest.AddComment(ctx, ticket.Key, body); err != nil {
				return fmt.Errorf("mirroring comment %d: %w", sc.ID, err)
			}
			logging.Debug("mirrored new comment",
				"item", item.Number,
				"ticket", ticket.Key,
				"comment", sc.ID)
			continue
		}

		if m.marker.Updated.Equal(sc.Updated) {
			continue
		}

		body := e.renderComment(sc) + "\n\n" + Marker{CommentID: sc.ID, Updated: sc.Updated, Deleted: m.marker.Deleted}.String()
		if err := e.dest.UpdateComment(ctx, ticket.Key, m.comment.ID, body); err != nil {
			return fmt.Errorf("updating mirrored comment %d: %w", sc.ID, err)
		}
		logging.Debug("refreshed edited comment",
			"item", item.Number,
			"ticket", ticket.Key,
			"comment", sc.ID)
	}

	// Annotate mirrors of deleted comments. Iterate the ticket's comment
	// order so repeated runs touch comments deterministically.
	for _, tc := range ticketComments {
		marker, ok := ParseMarker(tc.Body)
		if !ok || sourceIDs[marker.CommentID] || marker.Deleted {
			continue
		}

		marker.Deleted = true
		body := fmt.Sprintf("(x) _The GitHub comment below was deleted upstream; preserved here for history._\n\n%s\n\n%s",
			StripMarker(tc.Body), marker.String())
		if err := e.dest.UpdateComment(ctx, ticket.Key, tc.ID, body); err != nil {
			return fmt.Errorf("annotating deleted comment %d: %w", marker.CommentID, err)
		}
		logging.Info("annotated comment deleted upstream",
			"item", item.Number,
			"ticket", ticket.Key,
			"comment", marker.CommentID)
	}

	return nil
}

// renderComment builds the mirrored body for a source comment, without the
// trailing marker.
func (e *Engine) renderComment(c models.Comment) string {
	return fmt.Sprintf("[GitHub comment|%s] by @%s:\n\n%s", c.URL, c.Author, e.convert(c.Body))
}
