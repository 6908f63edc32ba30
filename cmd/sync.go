package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/mirror/internal/config"
	"github.com/danielolaszy/mirror/internal/github"
	"github.com/danielolaszy/mirror/internal/jira"
	"github.com/danielolaszy/mirror/internal/logging"
	"github.com/danielolaszy/mirror/internal/markup"
	"github.com/danielolaszy/mirror/internal/sync"
)

// syncCmd runs one reconciliation pass. The workflow invoking it must
// serialize runs against the same Jira project (a concurrency group); the
// engine only guards against overlap inside one process.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror GitHub items into Jira",
	Long: `Run one synchronization pass against the configured Jira project.

The trigger selects which items are processed:

  issue    a single item, given with --item (new-item events)
  comment  a single item, given with --item (comment events)
  sweep    all open pull requests (scheduled pass; fork PR events
           cannot trigger workflows directly)
  manual   an explicit list of item numbers, given with --items

Every trigger runs the same pipeline per item: find or create the linked
Jira issue, update its fields, then replay comment adds, edits, and
deletions. Item failures are reported individually; the batch continues.

Example:
  mirror sync -r owner/repo --trigger manual --items "42, 57, 103"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		triggerName, err := cmd.Flags().GetString("trigger")
		if err != nil {
			return err
		}
		itemNumber, err := cmd.Flags().GetInt("item")
		if err != nil {
			return err
		}
		itemList, err := cmd.Flags().GetString("items")
		if err != nil {
			return err
		}

		trigger := sync.Trigger{Kind: sync.TriggerKind(triggerName)}
		switch trigger.Kind {
		case sync.TriggerItem, sync.TriggerComment:
			if itemNumber <= 0 {
				return fmt.Errorf("--item is required for trigger %q", triggerName)
			}
			trigger.ItemNumber = itemNumber
		case sync.TriggerManual:
			trigger.ItemNumbers = sync.ParseItemNumbers(itemList)
			if len(trigger.ItemNumbers) == 0 {
				return fmt.Errorf("--items must contain at least one item number")
			}
		case sync.TriggerSweep:
		default:
			return fmt.Errorf("unknown trigger %q", triggerName)
		}

		cfg, engine, err := buildEngine(cmd)
		if err != nil {
			return err
		}

		logging.Info("starting synchronization",
			"repository", cfg.GitHub.Repository,
			"project", cfg.Jira.Project,
			"trigger", triggerName)

		result, err := engine.Run(cmd.Context(), trigger)
		if err != nil {
			return fmt.Errorf("sync run failed: %w", err)
		}

		for _, item := range result.Results {
			if item.Err != nil {
				fmt.Printf("item #%d: FAILED: %v\n", item.Number, item.Err)
			} else if item.Created {
				fmt.Printf("item #%d: created %s\n", item.Number, item.Key)
			} else {
				fmt.Printf("item #%d: updated %s\n", item.Number, item.Key)
			}
		}
		fmt.Printf("synchronized %d item(s), %d failed\n", result.Succeeded(), result.Failed())

		if result.Failed() > 0 && result.Succeeded() == 0 && len(result.Results) > 0 {
			return fmt.Errorf("all %d item(s) failed", result.Failed())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().String("trigger", string(sync.TriggerManual), "trigger kind: issue, comment, sweep, or manual")
	syncCmd.Flags().Int("item", 0, "item number for issue and comment triggers")
	syncCmd.Flags().String("items", "", "item numbers for the manual trigger (separated by any non-digit)")
}

// buildEngine loads configuration and wires the collaborators into an engine.
func buildEngine(cmd *cobra.Command) (*config.Config, *sync.Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if repository, _ := cmd.Flags().GetString("repository"); repository != "" {
		cfg.GitHub.Repository = repository
	}
	if cfg.GitHub.Repository == "" {
		return nil, nil, fmt.Errorf("repository is required (flag --repository or GITHUB_REPOSITORY)")
	}

	githubClient, err := github.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize github client: %w", err)
	}

	jiraClient, err := jira.NewClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize jira client: %w", err)
	}

	engine := sync.New(sync.Options{
		Source:            githubClient,
		Dest:              jiraClient,
		Convert:           markup.NewConverter().Convert,
		Project:           cfg.Jira.Project,
		Component:         cfg.Jira.Component,
		FallbackIssueType: cfg.Jira.IssueType,
	})
	return cfg, engine, nil
}
