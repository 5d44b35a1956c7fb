package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdesk/eligibility-service/internal/jobs"
)

var cleanupOlderThan time.Duration

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:     "cleanup",
	Short:   "Delete eligibility results older than the retention window",
	Example: `  eligibility-service cleanup --older-than 168h`,
	Args:    cobra.NoArgs,
	RunE:    runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 0, "Retention window (default from config)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	retention := cleanupOlderThan
	if retention <= 0 {
		retention = cfg.Engine.RetentionDefault
	}

	deleted, err := jobs.CleanupStaleResults(context.Background(), retention)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	fmt.Printf("Deleted %d stale eligibility row(s) older than %s\n", deleted, retention)
	return nil
}
