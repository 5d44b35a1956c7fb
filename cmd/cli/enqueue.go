package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taskdesk/eligibility-service/internal/queue"
	"github.com/taskdesk/eligibility-service/internal/redisconn"
)

// enqueueCmd represents the enqueue command
var enqueueCmd = &cobra.Command{
	Use:   "enqueue <taskID>",
	Short: "Enqueue an evaluation job for a worker to pick up",
	Example: `  eligibility-service enqueue 42 --rules '{"min_experience":2}'
  eligibility-service enqueue 42 --rules-file rules.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEnqueue,
}

func init() {
	rootCmd.AddCommand(enqueueCmd)

	enqueueCmd.Flags().StringVar(&evaluateRules, "rules", "", "Rule set as a JSON object")
	enqueueCmd.Flags().StringVar(&evaluateRulesFile, "rules-file", "", "Path to a JSON file with the rule set")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	taskID, err := strconv.Atoi(args[0])
	if err != nil || taskID <= 0 {
		return fmt.Errorf("invalid task ID: %s", args[0])
	}

	rawRules, err := loadRules()
	if err != nil {
		return err
	}

	q := queue.New(redisconn.Client, *logger)
	job, err := q.Enqueue(context.Background(), queue.Job{TaskID: taskID, Rules: rawRules})
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}

	fmt.Printf("Queued job %s for task %d\n", job.JobID, job.TaskID)
	return nil
}
