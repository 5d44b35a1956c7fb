package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskdesk/eligibility-service/internal/database"
	"github.com/taskdesk/eligibility-service/internal/queue"
	"github.com/taskdesk/eligibility-service/internal/redisconn"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend connectivity and queue depths",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tSTATUS")
	fmt.Fprintln(w, "-------\t------")

	pgStatus := "connected"
	if err := database.Status(ctx); err != nil {
		pgStatus = fmt.Sprintf("disconnected (%v)", err)
	}
	fmt.Fprintf(w, "postgres\t%s\n", pgStatus)

	redisStatus := "connected"
	if err := redisconn.Status(ctx); err != nil {
		redisStatus = fmt.Sprintf("disconnected (%v)", err)
	}
	fmt.Fprintf(w, "redis\t%s\n", redisStatus)
	w.Flush()

	if stats := database.Stats(); stats != nil {
		fmt.Printf("\nPool: %d/%d connections in use\n", stats.AcquiredConns(), stats.TotalConns())
	}

	if redisStatus == "connected" {
		depths, err := queue.New(redisconn.Client, *logger).Depths(ctx)
		if err != nil {
			return fmt.Errorf("failed to read queue depths: %w", err)
		}
		fmt.Println()
		qw := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(qw, "QUEUE\tDEPTH")
		fmt.Fprintln(qw, "-----\t-----")
		for _, name := range []string{queue.AssignmentQueue, queue.RecomputeQueue} {
			fmt.Fprintf(qw, "%s\t%d\n", name, depths[name])
		}
		qw.Flush()
	}

	return nil
}
