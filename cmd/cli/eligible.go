package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskdesk/eligibility-service/internal/database"
	"github.com/taskdesk/eligibility-service/internal/eligibility"
	"github.com/taskdesk/eligibility-service/internal/redisconn"
)

// eligibleCmd represents the eligible command
var eligibleCmd = &cobra.Command{
	Use:     "eligible <taskID>",
	Short:   "Show the ranked eligible users stored for a task",
	Example: `  eligibility-service eligible 42`,
	Args:    cobra.ExactArgs(1),
	RunE:    runEligible,
}

// tasksCmd represents the tasks command
var tasksCmd = &cobra.Command{
	Use:     "tasks <userID>",
	Short:   "Show the tasks a user is currently eligible for",
	Example: `  eligibility-service tasks 7`,
	Args:    cobra.ExactArgs(1),
	RunE:    runTasks,
}

func init() {
	rootCmd.AddCommand(eligibleCmd)
	rootCmd.AddCommand(tasksCmd)
}

func newRepository() *eligibility.Repository {
	store := eligibility.NewPostgresStore(database.Pool)
	cache := eligibility.NewRedisCache(redisconn.Client, *logger)
	return eligibility.NewRepository(store, cache, *logger)
}

func runEligible(cmd *cobra.Command, args []string) error {
	taskID, err := strconv.Atoi(args[0])
	if err != nil || taskID <= 0 {
		return fmt.Errorf("invalid task ID: %s", args[0])
	}

	ranked := newRepository().LoadByTask(context.Background(), taskID)
	if len(ranked) == 0 {
		fmt.Printf("No eligibility result stored for task %d\n", taskID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RANK\tUSER ID\tSCORE")
	fmt.Fprintln(w, "----\t-------\t-----")
	for i, u := range ranked {
		fmt.Fprintf(w, "%d\t%d\t%d\n", i+1, u.UserID, u.Score)
	}
	return w.Flush()
}

func runTasks(cmd *cobra.Command, args []string) error {
	userID, err := strconv.Atoi(args[0])
	if err != nil || userID <= 0 {
		return fmt.Errorf("invalid user ID: %s", args[0])
	}

	tasks := newRepository().TasksForUser(context.Background(), userID)
	if len(tasks) == 0 {
		fmt.Printf("User %d is not eligible for any tasks\n", userID)
		return nil
	}

	fmt.Printf("User %d is eligible for %d task(s):\n", userID, len(tasks))
	for _, t := range tasks {
		fmt.Printf("  %d\n", t)
	}
	return nil
}
