// Package enrich implements the enrichment engine (C6): it attaches EPSS
// scores, CISA KEV membership, an OSV-severity fallback, and a
// CVSS-vector-derived base score onto matches, in that fixed order, per
// spec §4.6.
package enrich

import (
	"context"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/advisory"
)

// Enrich attaches enrichment data to every match in place and returns the
// same slice, so callers can chain it directly into the priority scorer.
// Re-running Enrich on an already-enriched match is a no-op: each step only
// fills a field that is still unset.
func Enrich(ctx context.Context, store *advisory.Store, matches []bazbom.VulnerabilityMatch, osHint string) []bazbom.VulnerabilityMatch {
	ctx = zlog.ContextWithValues(ctx, "component", "enrich/Enrich")
	for i := range matches {
		enrichOne(ctx, store, &matches[i], osHint)
	}
	return matches
}

func enrichOne(ctx context.Context, store *advisory.Store, m *bazbom.VulnerabilityMatch, osHint string) {
	cve := canonicalCVE(m.Vulnerability)

	// Step 1: EPSS, exact CVE-ID lookup.
	if m.EPSS == nil && cve != "" {
		if score, ok := store.EPSS(cve); ok {
			s := score
			m.EPSS = &s
			m.Vulnerability.EPSS = &s
		}
	}

	// Step 2: CISA KEV membership, exact CVE-ID lookup.
	if m.KEV == nil && cve != "" {
		if entry, ok := store.KEV(cve); ok {
			e := entry
			m.KEV = &e
			m.Vulnerability.KEV = &e
		}
	}

	// Step 3: OSV-severity fallback, only when severity is still Unknown
	// and only for a plain CVE-* ID (never a GHSA/distro-native ID).
	if severityUnknown(m.Vulnerability.Severity) && isPlainCVE(cve) {
		if sev, err := store.SeverityFallback(ctx, cve, osHint); err == nil && sev != nil {
			m.Vulnerability.Severity = sev
		} else if err != nil {
			zlog.Debug(ctx).Err(err).Str("cve", cve).Msg("osv severity fallback failed")
		}
	}

	// Step 4: CVSS v3 base score from vector, only when a vector is
	// present but no numeric score has been derived from it yet.
	if sev := m.Vulnerability.Severity; sev != nil && !sev.HasScore && sev.CVSSv3 != "" {
		if score, err := advisory.ScoreFromVector(sev.CVSSv3); err == nil {
			sev.Score = score
			sev.HasScore = true
			sev.Level = bazbom.LevelFromCVSS(score)
		} else {
			zlog.Debug(ctx).Err(err).Str("vector", sev.CVSSv3).Msg("cvss vector scoring failed")
		}
	}
}

func severityUnknown(s *bazbom.Severity) bool {
	return s == nil || s.Level == bazbom.Unknown
}

func isPlainCVE(id string) bool {
	return len(id) > 4 && id[:4] == "CVE-"
}

// canonicalCVE returns the vulnerability's canonical CVE-YYYY-NNNN alias
// if one exists, else its own ID (which may or may not be a CVE).
func canonicalCVE(v bazbom.Vulnerability) string {
	if isPlainCVE(v.ID) {
		return v.ID
	}
	for _, a := range v.Aliases {
		if isPlainCVE(a) {
			return a
		}
	}
	return v.ID
}
