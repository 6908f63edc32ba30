// Package cmd provides the command-line interface for the mirror tool.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror synchronizes GitHub issues and pull requests into Jira",
	Long: `Mirror performs one-way, idempotent synchronization of GitHub issues,
pull requests, and their comments into a Jira project.

Each GitHub item is linked to exactly one Jira issue through a remote link
whose globalId is the item's URL; mirrored comments carry embedded markers
tying them to their GitHub comments. All sync state lives on the Jira side,
so runs can be aborted and re-run safely.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Available to all commands; falls back to GITHUB_REPOSITORY.
	rootCmd.PersistentFlags().StringP("repository", "r", "", "GitHub repository name (e.g., 'owner/repo')")
}
