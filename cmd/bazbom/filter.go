package main

import (
	"strings"

	"github.com/bazbom/bazbom"
)

// applyFilter narrows matches for display per spec §6's `--filter` flag:
// `p0|p1|p2|critical|high|medium|low|kev|fixable|quick-wins`. Filtering
// is display-only — it never affects what gets written to the
// persisted artifacts' underlying data, only the slice this function
// returns to the caller for on-screen summarization.
func applyFilter(matches []bazbom.VulnerabilityMatch, filter string) []bazbom.VulnerabilityMatch {
	if filter == "" {
		return matches
	}
	var kept []bazbom.VulnerabilityMatch
	for _, m := range matches {
		if matchesFilter(m, filter) {
			kept = append(kept, m)
		}
	}
	return kept
}

func matchesFilter(m bazbom.VulnerabilityMatch, filter string) bool {
	switch strings.ToLower(filter) {
	case "p0":
		return m.Priority == bazbom.P0
	case "p1":
		return m.Priority == bazbom.P1
	case "p2":
		return m.Priority == bazbom.P2
	case "critical":
		return severityLevel(m) == bazbom.Critical
	case "high":
		return severityLevel(m) == bazbom.High
	case "medium":
		return severityLevel(m) == bazbom.Medium
	case "low":
		return severityLevel(m) == bazbom.Low
	case "kev":
		return m.KEV != nil
	case "fixable":
		return hasFix(m)
	case "quick-wins":
		return hasFix(m) && (m.Priority == bazbom.P0 || m.Priority == bazbom.P1) && m.DifficultyScore < 40
	default:
		return true
	}
}

func severityLevel(m bazbom.VulnerabilityMatch) bazbom.Level {
	if m.Vulnerability.Severity == nil {
		return bazbom.Unknown
	}
	return m.Vulnerability.Severity.Level
}

func hasFix(m bazbom.VulnerabilityMatch) bool {
	for _, a := range m.Vulnerability.Affected {
		for _, r := range a.Ranges {
			for _, e := range r.Events {
				if e.Kind == bazbom.Fixed {
					return true
				}
			}
		}
	}
	return false
}
