// Package priority implements the priority scorer (C7): it assigns each
// enriched match an operational urgency bucket (P0-P4) from its KEV/EPSS/
// CVSS signals, and a remediation difficulty score, per spec §4.7.
package priority

import (
	"strings"

	"github.com/bazbom/bazbom"
)

// frameworkTiers lists packages whose upgrades are known to carry outsized
// migration cost regardless of the semver delta, per spec §4.7's
// difficulty-score formula. Matched case-insensitively as a substring of
// the component name.
var frameworkTiers = []string{
	"spring", "django", "rails", "react", "vue", "angular", "express", "laravel", "symfony",
}

// Score assigns m.Priority from its enriched KEV/EPSS/CVSS signals,
// following spec §4.7's decision tree top to bottom; the first matching
// branch wins.
func Score(m *bazbom.VulnerabilityMatch) {
	m.Priority = decidePriority(m)
}

func decidePriority(m *bazbom.VulnerabilityMatch) bazbom.Priority {
	kev := m.KEV != nil
	epss, hasEPSS := epssScore(m)
	cvss, hasCVSS := cvssScore(m)

	switch {
	case kev:
		return bazbom.P0
	case hasEPSS && epss >= 0.9:
		return bazbom.P0
	case hasCVSS && cvss >= 9.0:
		return bazbom.P0
	case hasCVSS && cvss >= 7.0 && (kev || (hasEPSS && epss >= 0.5)):
		return bazbom.P1
	case hasCVSS && cvss >= 7.0:
		return bazbom.P2
	case hasCVSS && cvss >= 4.0 && hasEPSS && epss >= 0.1:
		return bazbom.P2
	case hasCVSS && cvss >= 4.0:
		return bazbom.P3
	default:
		return bazbom.P4
	}
}

func epssScore(m *bazbom.VulnerabilityMatch) (float64, bool) {
	if m.EPSS == nil {
		return 0, false
	}
	return m.EPSS.Score, true
}

func cvssScore(m *bazbom.VulnerabilityMatch) (float64, bool) {
	sev := m.Vulnerability.Severity
	if sev == nil || !sev.HasScore {
		return 0, false
	}
	return sev.Score, true
}

// DifficultyScore computes m.DifficultyScore from a remediation's
// breaking-change classification and version delta, per spec §4.7's
// formula: base 10, +40 for a breaking change, +15 per major-version jump
// (capped at 6 jumps), +25 for a framework-tier package, capped at 95
// unless no fix is available at all (bazbom.NoFixDifficulty).
func DifficultyScore(m *bazbom.VulnerabilityMatch, hasFix, breaking bool, majorJumps int) int {
	if !hasFix {
		return bazbom.NoFixDifficulty
	}

	score := 10
	if breaking {
		score += 40
	}
	if majorJumps > 6 {
		majorJumps = 6
	}
	if majorJumps > 0 {
		score += 15 * majorJumps
	}
	if isFrameworkTier(m.Component.Name) {
		score += 25
	}
	if score > 95 {
		score = 95
	}
	return score
}

func isFrameworkTier(name string) bool {
	lower := strings.ToLower(name)
	for _, fw := range frameworkTiers {
		if strings.Contains(lower, fw) {
			return true
		}
	}
	return false
}
