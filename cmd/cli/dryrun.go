package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskdesk/eligibility-service/internal/roster"
	"github.com/taskdesk/eligibility-service/internal/rules"
)

var dryrunLimit int

// dryrunCmd represents the dryrun command
var dryrunCmd = &cobra.Command{
	Use:   "dryrun <roster-file>",
	Short: "Evaluate a rule set offline against a roster export",
	Long: `Evaluate a rule set against a roster file (csv or xlsx) without touching
any backend. Useful for checking what a rule set would select before
rolling it out. Nothing is persisted and no assignment is published.`,
	Example: `  eligibility-service dryrun roster.xlsx --rules '{"department":"ops"}'
  eligibility-service dryrun roster.csv --rules-file rules.json --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: runDryrun,
}

func init() {
	rootCmd.AddCommand(dryrunCmd)

	dryrunCmd.Flags().StringVar(&evaluateRules, "rules", "", "Rule set as a JSON object")
	dryrunCmd.Flags().StringVar(&evaluateRulesFile, "rules-file", "", "Path to a JSON file with the rule set")
	dryrunCmd.Flags().IntVar(&dryrunLimit, "limit", 0, "Show only the top N candidates (0 = all)")
}

func runDryrun(cmd *cobra.Command, args []string) error {
	rawRules, err := loadRules()
	if err != nil {
		return err
	}

	candidates, err := roster.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	ranked := rules.Evaluate(candidates, rules.Decode(rawRules))

	fmt.Printf("Roster: %d candidate(s), eligible: %d\n\n", len(candidates), len(ranked))
	if len(ranked) == 0 {
		return nil
	}

	if dryrunLimit > 0 && len(ranked) > dryrunLimit {
		ranked = ranked[:dryrunLimit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RANK\tUSER ID\tDEPARTMENT\tEXPERIENCE\tACTIVE TASKS\tSCORE")
	fmt.Fprintln(w, "----\t-------\t----------\t----------\t------------\t-----")
	for i, r := range ranked {
		c := r.Candidate
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%d\n", i+1, c.ID, c.Department, c.ExperienceYears, c.ActiveTaskCount, r.Score)
	}
	return w.Flush()
}
