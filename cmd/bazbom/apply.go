package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/apply"
	"github.com/bazbom/bazbom/report"
)

var (
	applySkipTests   bool
	applyFrom        string
	applyTestTimeout time.Duration
)

var applyCmd = &cobra.Command{
	Use:   "apply [root]",
	Short: "Apply remediation suggestions from a prior scan, rolling back on test failure",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applySkipTests, "skip-tests", false, "apply without running the ecosystem's test command")
	applyCmd.Flags().StringVar(&applyFrom, "from", "", "path to a polyglot-vulns.json produced by scan (default: <out-dir>/findings/polyglot-vulns.json)")
	applyCmd.Flags().DurationVar(&applyTestTimeout, "test-timeout", apply.DefaultTestTimeout, "timeout for the ecosystem's test command")
	rootCmd.AddCommand(applyCmd)
}

// runApply reads the remediation suggestions from a prior scan's
// findings file and hands them to the transactional applier (C10), one
// call per ecosystem since Apply's test command and manifest mutators
// are both ecosystem-specific.
func runApply(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return &configError{message: fmt.Sprintf("apply target %q is not a directory", root)}
	}

	findingsPath := applyFrom
	if findingsPath == "" {
		findingsPath = filepath.Join(outDir, "findings", "polyglot-vulns.json")
	}

	suggestions, err := loadSuggestions(findingsPath)
	if err != nil {
		return &configError{message: fmt.Sprintf("loading %s: %v", findingsPath, err)}
	}
	if len(suggestions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no remediation suggestions to apply")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	byEcosystem := make(map[string][]bazbom.RemediationSuggestion)
	for _, s := range suggestions {
		byEcosystem[s.Ecosystem] = append(byEcosystem[s.Ecosystem], s)
	}

	var totalApplied, totalFailed, totalSkipped int
	for ecosystem, ss := range byEcosystem {
		res, err := apply.Apply(ctx, root, ecosystem, ss, apply.Options{SkipTests: applySkipTests, TestTimeout: applyTestTimeout})
		if err != nil {
			return fmt.Errorf("applying %s suggestions: %w", ecosystem, err)
		}
		totalApplied += res.Applied
		totalFailed += res.Failed
		totalSkipped += res.Skipped
		if res.TestsRun && !res.TestsPass {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: tests failed, rolled back (%s)\n", ecosystem, res.TestOutput)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: applied %d, failed %d, skipped %d\n", ecosystem, res.Applied, res.Failed, res.Skipped)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "total: applied %d, failed %d, skipped %d\n", totalApplied, totalFailed, totalSkipped)
	return nil
}

func loadSuggestions(path string) ([]bazbom.RemediationSuggestion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r report.PolyglotVulnReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r.Remediation, nil
}
