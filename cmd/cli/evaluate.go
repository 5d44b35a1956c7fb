package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taskdesk/eligibility-service/internal/assignments"
	"github.com/taskdesk/eligibility-service/internal/database"
	"github.com/taskdesk/eligibility-service/internal/eligibility"
	"github.com/taskdesk/eligibility-service/internal/engine"
	httpclient "github.com/taskdesk/eligibility-service/internal/http"
	"github.com/taskdesk/eligibility-service/internal/http/ratelimit"
	"github.com/taskdesk/eligibility-service/internal/lock"
	"github.com/taskdesk/eligibility-service/internal/redisconn"
	"github.com/taskdesk/eligibility-service/internal/users"
)

var (
	evaluateRules     string
	evaluateRulesFile string
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <taskID>",
	Short: "Evaluate a rule set against the live candidate pool",
	Long: `Run one evaluation for a task: fetch the candidate pool from the user
service, filter and rank it by the given rules, persist the result, and
publish the top candidate as the task's assignment.

Rules are a JSON object, e.g. '{"department":"ops","min_experience":3}'.`,
	Example: `  eligibility-service evaluate 42 --rules '{"department":"ops"}'
  eligibility-service evaluate 42 --rules-file rules.json`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateRules, "rules", "", "Rule set as a JSON object")
	evaluateCmd.Flags().StringVar(&evaluateRulesFile, "rules-file", "", "Path to a JSON file with the rule set")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	taskID, err := strconv.Atoi(args[0])
	if err != nil || taskID <= 0 {
		return fmt.Errorf("invalid task ID: %s", args[0])
	}

	rawRules, err := loadRules()
	if err != nil {
		return err
	}

	ctx := context.Background()

	store := eligibility.NewPostgresStore(database.Pool)
	cache := eligibility.NewRedisCache(redisconn.Client, *logger)
	repo := eligibility.NewRepository(store, cache, *logger)

	outbound := httpclient.NewClient(ratelimit.Config{
		RequestsPerSecond: cfg.Outbound.RequestsPerSecond,
		Burst:             cfg.Outbound.Burst,
		MaxRetries:        cfg.Outbound.MaxRetries,
		InitialBackoff:    cfg.Outbound.InitialBackoff,
		MaxBackoff:        cfg.Outbound.MaxBackoff,
	})

	eng := engine.New(
		lock.NewRedisManager(redisconn.Client, cfg.Engine.LockTTL, *logger),
		users.NewClient(cfg.Services.UserServiceURL, outbound, *logger),
		repo,
		assignments.NewPublisher(cfg.Services.TaskServiceURL, outbound, *logger),
		*logger,
	)

	summary, err := eng.Evaluate(ctx, taskID, rawRules)
	if errors.Is(err, engine.ErrTaskLocked) {
		fmt.Printf("Task %d is locked by another evaluation, skipped\n", taskID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	fmt.Printf("Task %d: %d eligible candidate(s)\n", summary.TaskID, summary.EligibleCount)
	if summary.AssignedUserID != nil {
		fmt.Printf("Assigned user: %d\n", *summary.AssignedUserID)
	} else {
		fmt.Println("Assigned user: none (empty pool)")
	}
	return nil
}

func loadRules() (map[string]any, error) {
	raw := evaluateRules
	if evaluateRulesFile != "" {
		if raw != "" {
			return nil, fmt.Errorf("use either --rules or --rules-file, not both")
		}
		content, err := os.ReadFile(evaluateRulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules file: %w", err)
		}
		raw = string(content)
	}
	if raw == "" {
		return map[string]any{}, nil
	}

	var rules map[string]any
	if err := json.Unmarshal([]byte(raw), &rules); err != nil {
		return nil, fmt.Errorf("rules must be a JSON object: %w", err)
	}
	return rules, nil
}
