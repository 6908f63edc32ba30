package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/mirror/internal/config"
	"github.com/danielolaszy/mirror/internal/jira"
)

// statusCmd reports mirror statistics, and with --url performs both
// lookups for one item: the remote-link globalId search the sync path
// uses, and the reference-field search. A ticket found by the second but
// not the first was left unlinked by a partial creation and needs a remote
// link added manually.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mirror statistics for the Jira project",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := cmd.Flags().GetString("url")
		if err != nil {
			return err
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		jiraClient, err := jira.NewClient(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize jira client: %w", err)
		}

		ctx := cmd.Context()

		if url != "" {
			linked, err := jiraClient.FindIssueKeysByGlobalID(ctx, url)
			if err != nil {
				return fmt.Errorf("remote link lookup failed: %w", err)
			}
			referenced, err := jiraClient.FindIssueKeysByReference(ctx, url)
			if err != nil {
				return fmt.Errorf("reference field lookup failed: %w", err)
			}

			fmt.Printf("remote link (globalId):  %v\n", linked)
			fmt.Printf("reference field:         %v\n", referenced)
			if len(linked) == 0 && len(referenced) > 0 {
				fmt.Println("warning: ticket(s) reference this item but carry no remote link;")
				fmt.Println("add a remote link manually or the next sync will create a duplicate")
			}
			if len(linked) > 1 {
				fmt.Println("warning: multiple tickets claim this item's remote link; remove the extras")
			}
			return nil
		}

		total, err := jiraClient.CountMirrored(ctx)
		if err != nil {
			return fmt.Errorf("failed to count mirrored issues: %w", err)
		}

		fmt.Printf("project %s: %d mirrored issue(s)\n", cfg.Jira.Project, total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().String("url", "", "look up the ticket(s) for one GitHub item URL")
}
