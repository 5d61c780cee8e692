// Package report implements the output writers (spec §6): the SPDX/
// CycloneDX SBOM, the SARIF findings file, and bazbom's own internal-
// schema JSON artifacts (polyglot SBOM, polyglot vulns, scan result,
// baseline).
package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/bazbom/bazbom"
)

// PolyglotSBOM is the internal-schema SBOM emitted alongside the
// SPDX/CycloneDX document: one entry per detected component across every
// ecosystem in a workspace or image scan.
type PolyglotSBOM struct {
	GeneratedAt string              `json:"generated_at"`
	Components  []bazbom.Component  `json:"components"`
	ByEcosystem map[string][]string `json:"by_ecosystem"`
}

// NewPolyglotSBOM builds a PolyglotSBOM from a scan's components.
// generatedAt is passed in by the caller rather than computed here.
func NewPolyglotSBOM(generatedAt string, components []bazbom.Component) *PolyglotSBOM {
	byEco := make(map[string][]string)
	for _, c := range components {
		byEco[c.Ecosystem] = append(byEco[c.Ecosystem], c.Name+"@"+c.Version)
	}
	return &PolyglotSBOM{
		GeneratedAt: generatedAt,
		Components:  components,
		ByEcosystem: byEco,
	}
}

// Encode renders the polyglot SBOM as indented JSON.
func (s *PolyglotSBOM) Encode() (io.Reader, error) {
	return encodeJSON(s, "report.PolyglotSBOM.Encode")
}

// PolyglotVulnReport is the internal-schema vulnerability report: every
// match produced by the matcher/enricher/scorer/linker stages, plus a
// count of matches per priority for quick display.
type PolyglotVulnReport struct {
	GeneratedAt string                          `json:"generated_at"`
	Matches     []bazbom.VulnerabilityMatch     `json:"matches"`
	ByPriority  map[bazbom.Priority]int         `json:"by_priority"`
	Remediation []bazbom.RemediationSuggestion `json:"remediation,omitempty"`
}

// NewPolyglotVulnReport builds a PolyglotVulnReport from the final set of
// matches and any synthesized remediation suggestions.
func NewPolyglotVulnReport(generatedAt string, matches []bazbom.VulnerabilityMatch, suggestions []bazbom.RemediationSuggestion) *PolyglotVulnReport {
	counts := make(map[bazbom.Priority]int)
	for _, m := range matches {
		counts[m.Priority]++
	}
	return &PolyglotVulnReport{
		GeneratedAt: generatedAt,
		Matches:     matches,
		ByPriority:  counts,
		Remediation: suggestions,
	}
}

// Encode renders the polyglot vulnerability report as indented JSON.
func (r *PolyglotVulnReport) Encode() (io.Reader, error) {
	return encodeJSON(r, "report.PolyglotVulnReport.Encode")
}

// ScanResult is the top-level `scan-results.json` summary: counts and
// warnings from one scan run, per spec §7's "aggregate warnings and
// surface them in a scan-completion summary" principle.
type ScanResult struct {
	GeneratedAt      string   `json:"generated_at"`
	Target           string   `json:"target"`
	ComponentCount   int      `json:"component_count"`
	VulnCount        int      `json:"vulnerability_count"`
	CriticalCount    int      `json:"critical_count"`
	Warnings         []string `json:"warnings,omitempty"`
	PolicyViolated   bool     `json:"policy_violated"`
}

// NewScanResult summarizes a scan's matches against a critical-count
// policy threshold, and any warnings accumulated along the way (parse
// errors, skipped feeds, missing tools — per spec §7, none of which
// abort the scan on their own).
func NewScanResult(generatedAt, target string, matches []bazbom.VulnerabilityMatch, criticalThreshold int, warnings []string) *ScanResult {
	critical := 0
	for _, m := range matches {
		if m.Priority == bazbom.P0 {
			critical++
		}
	}
	return &ScanResult{
		GeneratedAt:    generatedAt,
		Target:         target,
		ComponentCount: 0,
		VulnCount:      len(matches),
		CriticalCount:  critical,
		Warnings:       warnings,
		PolicyViolated: criticalThreshold >= 0 && critical > criticalThreshold,
	}
}

// Encode renders the scan result as indented JSON.
func (r *ScanResult) Encode() (io.Reader, error) {
	return encodeJSON(r, "report.ScanResult.Encode")
}

// Baseline is a point-in-time snapshot of known vulnerabilities for an
// image. A later scan can diff against it with NewFindings to report
// only newly introduced findings.
type Baseline struct {
	Image       string   `json:"image"`
	GeneratedAt string   `json:"generated_at"`
	VulnIDs     []string `json:"vulnerability_ids"`
}

// NewBaseline captures the set of vulnerability IDs present in a scan.
func NewBaseline(image, generatedAt string, matches []bazbom.VulnerabilityMatch) *Baseline {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range matches {
		if !seen[m.Vulnerability.ID] {
			seen[m.Vulnerability.ID] = true
			ids = append(ids, m.Vulnerability.ID)
		}
	}
	return &Baseline{Image: image, GeneratedAt: generatedAt, VulnIDs: ids}
}

// Encode renders the baseline as indented JSON.
func (b *Baseline) Encode() (io.Reader, error) {
	return encodeJSON(b, "report.Baseline.Encode")
}

// NewFindings returns the matches in current whose vulnerability ID is
// absent from baseline, per the baseline-diff use case described in spec §9.
func NewFindings(baseline *Baseline, current []bazbom.VulnerabilityMatch) []bazbom.VulnerabilityMatch {
	known := make(map[string]bool)
	if baseline != nil {
		for _, id := range baseline.VulnIDs {
			known[id] = true
		}
	}
	var fresh []bazbom.VulnerabilityMatch
	for _, m := range current {
		if !known[m.Vulnerability.ID] {
			fresh = append(fresh, m)
		}
	}
	return fresh
}

func encodeJSON(v interface{}, op string) (io.Reader, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, &bazbom.Error{Kind: bazbom.ErrInternal, Op: op, Inner: err}
	}
	return buf, nil
}
