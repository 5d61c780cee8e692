package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/scanner"
)

var fixJSON bool

var fixCmd = &cobra.Command{
	Use:   "fix [root]",
	Short: "List remediation suggestions for a workspace without applying them",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&fixJSON, "json", false, "print suggestions as JSON instead of a table")
	rootCmd.AddCommand(fixCmd)
}

// runFix is scan's read-only sibling: it runs the same C5-C9 pipeline
// but only ever prints remediation suggestions, never mutates a
// manifest. apply is the only command that writes to the workspace.
func runFix(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return &configError{message: fmt.Sprintf("fix target %q is not a directory", root)}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := scanner.Scan(ctx, root, scanner.Options{EnableVulnerabilities: true})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}

	var components []bazbom.Component
	var warnings []string
	for _, r := range results {
		components = append(components, r.Components...)
		warnings = append(warnings, r.Warnings...)
	}

	_, suggestions, err := runPipeline(ctx, components, &warnings)
	if err != nil {
		return err
	}

	if fixJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(suggestions)
	}

	printFixTable(cmd, suggestions)
	return nil
}

func printFixTable(cmd *cobra.Command, suggestions []bazbom.RemediationSuggestion) {
	out := cmd.OutOrStdout()
	if len(suggestions) == 0 {
		fmt.Fprintln(out, "no fixable findings")
		return
	}
	fmt.Fprintf(out, "%-20s %-30s %-12s %-12s %-6s\n", "VULN ID", "PACKAGE", "CURRENT", "FIXED", "PRI")
	for _, s := range suggestions {
		fmt.Fprintf(out, "%-20s %-30s %-12s %-12s %-6s\n", s.VulnID, s.Package, s.CurrentVersion, s.FixedVersion, s.Priority)
	}
}
