package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/report"
	"github.com/bazbom/bazbom/scanner"
)

var (
	scanSBOMFormat string
	scanOSHint     string
	scanFailOnCrit int
)

var scanCmd = &cobra.Command{
	Use:   "scan [root]",
	Short: "Scan a workspace for vulnerable dependencies",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanSBOMFormat, "sbom-format", "spdx", "SBOM format: spdx or cyclonedx")
	scanCmd.Flags().StringVar(&scanOSHint, "os", "", "distro hint for OSV severity fallback")
	scanCmd.Flags().IntVar(&scanFailOnCrit, "fail-on-critical", -1, "exit 2 if more than N critical (P0) findings are found; -1 disables")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return &configError{message: fmt.Sprintf("scan target %q is not a directory", root)}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := scanner.Scan(ctx, root, scanner.Options{EnableVulnerabilities: true, EnableReachability: true})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", root, err)
	}

	var components []bazbom.Component
	var warnings []string
	for _, r := range results {
		components = append(components, r.Components...)
		warnings = append(warnings, r.Warnings...)
	}

	matches, suggestions, err := runPipeline(ctx, components, &warnings)
	if err != nil {
		return err
	}

	if err := writeArtifacts(root, components, matches, suggestions, warnings); err != nil {
		return fmt.Errorf("writing artifacts: %w", err)
	}

	matches = applyFilter(matches, filterFlag)

	critical := 0
	for _, m := range matches {
		if m.Priority == bazbom.P0 {
			critical++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "scanned %d components, %d findings (%d critical)\n", len(components), len(matches), critical)

	if scanFailOnCrit >= 0 && critical > scanFailOnCrit {
		return &policyViolation{message: fmt.Sprintf("%d critical findings exceed threshold %d", critical, scanFailOnCrit)}
	}
	return nil
}

func writeArtifacts(root string, components []bazbom.Component, matches []bazbom.VulnerabilityMatch, suggestions []bazbom.RemediationSuggestion, warnings []string) error {
	now := time.Now().Format(time.RFC3339)

	if err := os.MkdirAll(filepath.Join(outDir, "sbom"), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(outDir, "findings"), 0o755); err != nil {
		return err
	}

	switch strings.ToLower(scanSBOMFormat) {
	case "cyclonedx":
		enc := &report.CycloneDXEncoder{}
		r, encErr := enc.Encode(components)
		if err := writeEncoded(filepath.Join(outDir, "sbom", "cyclonedx.json"), r, encErr); err != nil {
			return err
		}
	default:
		enc := &report.SPDXEncoder{
			DocumentName:      filepath.Base(root),
			DocumentNamespace: "https://bazbom.invalid/" + filepath.Base(root),
			Creators:          []report.Creator{{Name: "bazbom", Type: "Tool"}},
		}
		r, encErr := enc.Encode(components)
		if err := writeEncoded(filepath.Join(outDir, "sbom", "spdx.json"), r, encErr); err != nil {
			return err
		}
	}

	sarifEnc := &report.SARIFEncoder{ToolName: "bazbom", ToolURI: "https://bazbom.invalid"}
	sarifR, sarifErr := sarifEnc.Encode(matches)
	if err := writeEncoded(filepath.Join(outDir, "findings", "sca.sarif"), sarifR, sarifErr); err != nil {
		return err
	}

	polySBOM := report.NewPolyglotSBOM(now, components)
	polySBOMR, polySBOMErr := polySBOM.Encode()
	if err := writeEncoded(filepath.Join(outDir, "sbom", "polyglot-sbom.json"), polySBOMR, polySBOMErr); err != nil {
		return err
	}

	polyVulns := report.NewPolyglotVulnReport(now, matches, suggestions)
	polyVulnsR, polyVulnsErr := polyVulns.Encode()
	if err := writeEncoded(filepath.Join(outDir, "findings", "polyglot-vulns.json"), polyVulnsR, polyVulnsErr); err != nil {
		return err
	}

	scanResult := report.NewScanResult(now, root, matches, scanFailOnCrit, warnings)
	scanResult.ComponentCount = len(components)
	scanResultR, scanResultErr := scanResult.Encode()
	if err := writeEncoded(filepath.Join(outDir, "scan-results.json"), scanResultR, scanResultErr); err != nil {
		return err
	}

	return nil
}

// writeEncoded writes an encoder's output to path, surfacing encErr
// (the encoder's own error) before attempting to read or write r.
func writeEncoded(path string, r io.Reader, encErr error) error {
	if encErr != nil {
		return encErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
