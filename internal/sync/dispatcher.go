package sync

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/danielolaszy/mirror/internal/logging"
	"github.com/danielolaszy/mirror/pkg/models"
)

// TriggerKind classifies what started a sync run.
type TriggerKind string

const (
	// TriggerItem is a new-item event carrying a single item number.
	TriggerItem TriggerKind = "issue"

	// TriggerComment is a new-or-changed-comment event carrying the parent
	// item number.
	TriggerComment TriggerKind = "comment"

	// TriggerSweep is the scheduled pass over open pull requests, whose
	// fork-origin events cannot reach the workflow.
	TriggerSweep TriggerKind = "sweep"

	// TriggerManual is an operator-supplied list of item numbers.
	TriggerManual TriggerKind = "manual"
)

// Trigger describes one invocation of the dispatcher.
type Trigger struct {
	Kind TriggerKind

	// ItemNumber is the event's item for TriggerItem and TriggerComment.
	ItemNumber int

	// ItemNumbers is the explicit batch for TriggerManual.
	ItemNumbers []int
}

var itemListSeparator = regexp.MustCompile(`\W+`)

// ParseItemNumbers splits an operator-entered item list on any non-word
// characters, skipping tokens that are not numbers.
func ParseItemNumbers(list string) []int {
	var numbers []int
	for _, token := range itemListSeparator.Split(list, -1) {
		if token == "" {
			continue
		}
		n, err := strconv.Atoi(token)
		if err != nil {
			logging.Warn("skipping invalid item number", "token", token)
			continue
		}
		numbers = append(numbers, n)
	}
	return numbers
}

// Run resolves the trigger to a batch of items and syncs them one at a
// time. One item's failure is recorded and the batch continues; the result
// reports every item's outcome. Items are processed sequentially; Jira
// rate limits dominate, and correctness rests on per-run serialization
// rather than throughput.
//
// Runs are single-flight within the process; overlapping calls fail with
// ErrSyncInProgress. Serialization across processes is the environment's
// concurrency group, which the engine depends on but does not implement.
func (e *Engine) Run(ctx context.Context, trigger Trigger) (models.BatchResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return models.BatchResult{}, ErrSyncInProgress
	}
	defer e.running.Store(false)

	numbers, err := e.resolveItemNumbers(ctx, trigger)
	if err != nil {
		return models.BatchResult{}, err
	}

	logging.Info("starting sync run",
		"trigger", string(trigger.Kind),
		"item_count", len(numbers))

	result := models.BatchResult{}
	for _, number := range numbers {
		if err := ctx.Err(); err != nil {
			// Aborted runs are safe: the next run re-derives all state
			// from the markers on the Jira side.
			return result, err
		}

		itemResult := e.runItem(ctx, number)
		if itemResult.Err != nil {
			logging.Error("item sync failed",
				"item", number,
				"error", itemResult.Err)
		} else {
			logging.Info("item synced",
				"item", number,
				"ticket", itemResult.Key,
				"created", itemResult.Created)
		}
		result.Results = append(result.Results, itemResult)
	}

	logging.Info("sync run complete",
		"succeeded", result.Succeeded(),
		"failed", result.Failed())
	return result, nil
}

func (e *Engine) runItem(ctx context.Context, number int) models.ItemResult {
	item, err := e.source.GetItem(ctx, number)
	if err != nil {
		return models.ItemResult{Number: number, Err: fmt.Errorf("fetching item #%d: %w", number, err)}
	}

	result, err := e.SyncItem(ctx, item)
	result.Err = err
	return result
}

func (e *Engine) resolveItemNumbers(ctx context.Context, trigger Trigger) ([]int, error) {
	switch trigger.Kind {
	case TriggerItem, TriggerComment:
		if trigger.ItemNumber <= 0 {
			return nil, fmt.Errorf("trigger %q requires an item number", trigger.Kind)
		}
		return []int{trigger.ItemNumber}, nil

	case TriggerManual:
		if len(trigger.ItemNumbers) == 0 {
			return nil, fmt.Errorf("manual trigger requires at least one item number")
		}
		return trigger.ItemNumbers, nil

	case TriggerSweep:
		items, err := e.source.ListOpenPullRequests(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing open pull requests for sweep: %w", err)
		}
		numbers := make([]int, 0, len(items))
		for _, item := range items {
			numbers = append(numbers, item.Number)
		}
		return numbers, nil

	default:
		return nil, fmt.Errorf("unknown trigger kind %q", trigger.Kind)
	}
}
