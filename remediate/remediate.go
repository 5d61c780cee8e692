// Package remediate implements the remediation synthesizer (C9): for
// every match with a known fixed version, it composes a why-fix
// explanation, a build-system-templated how-to-fix snippet, and a
// breaking-change classification by semver delta, per spec §4.9.
package remediate

import (
	"fmt"
	"strings"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/version"
)

// Synthesize produces a RemediationSuggestion for m, or nil if m has no
// Fixed event at or above its component's current version.
func Synthesize(m bazbom.VulnerabilityMatch) *bazbom.RemediationSuggestion {
	fixed, ok := fixedVersion(m)
	if !ok {
		return nil
	}

	level := bazbom.Unknown
	if sev := m.Vulnerability.Severity; sev != nil {
		level = sev.Level
	}

	return &bazbom.RemediationSuggestion{
		VulnID:          m.Vulnerability.ID,
		Ecosystem:       m.Component.Ecosystem,
		Package:         m.Component.Name,
		CurrentVersion:  m.Component.Version,
		FixedVersion:    fixed,
		Severity:        level,
		Priority:        m.Priority,
		WhyFix:          whyFix(m),
		HowToFix:        howToFix(m.Component, fixed),
		BreakingChanges: breakingChanges(m.Component.Ecosystem, m.Component.Name, m.Component.Version, fixed),
		References:      append([]string{}, m.Vulnerability.References...),
	}
}

// fixedVersion reports the lowest Fixed event version found across the
// match's affected ranges for its own ecosystem/package that is itself
// ≥ the component's current version, per spec §4.9 ("a Fixed event
// whose version is ≥ current"). A Fixed event older than the currently
// installed version describes a vulnerability the component has already
// outgrown, not a remediation, so it's skipped rather than suggested.
// A Fixed version that fails to parse under the ecosystem's scheme is
// likewise skipped rather than risk steering a user backward.
func fixedVersion(m bazbom.VulnerabilityMatch) (string, bool) {
	scheme := version.SchemeForEcosystem(m.Component.Ecosystem)
	pkgName := m.Component.PackageName()

	best := ""
	found := false
	for _, aff := range m.Vulnerability.Affected {
		if aff.Ecosystem != m.Component.Ecosystem || aff.Package != pkgName {
			continue
		}
		for _, r := range aff.Ranges {
			for _, ev := range r.Events {
				if ev.Kind != bazbom.Fixed {
					continue
				}
				cmp, err := version.Compare(scheme, ev.Version, m.Component.Version)
				if err != nil || cmp < 0 {
					continue
				}
				if !found {
					best, found = ev.Version, true
					continue
				}
				if c, err := version.Compare(scheme, ev.Version, best); err == nil && c < 0 {
					best = ev.Version
				}
			}
		}
	}
	return best, found
}

// whyFix composes the justification in the fixed order: severity phrase,
// KEV membership, EPSS bucket, CVSS bucket, advisory summary. Missing
// signals are skipped rather than rendered empty.
func whyFix(m bazbom.VulnerabilityMatch) string {
	var reasons []string

	if sev := m.Vulnerability.Severity; sev != nil {
		reasons = append(reasons, severityPhrase(sev.Level))
	}

	if m.KEV != nil {
		reasons = append(reasons, "Listed in CISA KEV (Known Exploited Vulnerabilities) - actively exploited in the wild")
	}

	if m.EPSS != nil {
		switch {
		case m.EPSS.Score >= 0.9:
			reasons = append(reasons, fmt.Sprintf("Very high exploit probability (EPSS: %.1f%%)", m.EPSS.Score*100))
		case m.EPSS.Score >= 0.5:
			reasons = append(reasons, fmt.Sprintf("High exploit probability (EPSS: %.1f%%)", m.EPSS.Score*100))
		case m.EPSS.Score >= 0.1:
			reasons = append(reasons, fmt.Sprintf("Moderate exploit probability (EPSS: %.1f%%)", m.EPSS.Score*100))
		}
	}

	if sev := m.Vulnerability.Severity; sev != nil && sev.HasScore {
		switch {
		case sev.Score >= 9.0:
			reasons = append(reasons, fmt.Sprintf("Very high CVSS score: %.1f", sev.Score))
		case sev.Score >= 7.0:
			reasons = append(reasons, fmt.Sprintf("High CVSS score: %.1f", sev.Score))
		}
	}

	if m.Vulnerability.Summary != "" {
		reasons = append(reasons, fmt.Sprintf("Impact: %s", m.Vulnerability.Summary))
	}

	if len(reasons) == 0 {
		return "This vulnerability should be addressed to reduce security risk"
	}
	return strings.Join(reasons, ". ")
}

func severityPhrase(level bazbom.Level) string {
	switch level {
	case bazbom.Critical:
		return "CRITICAL severity - immediate action required"
	case bazbom.High:
		return "HIGH severity - fix as soon as possible"
	case bazbom.Medium:
		return "MEDIUM severity - schedule fix in near term"
	case bazbom.Low, bazbom.Negligible:
		return "LOW severity - fix when convenient"
	default:
		return "Unknown severity"
	}
}

// howToFix renders a build-system-templated snippet plus rebuild command,
// keyed off the component's ecosystem.
func howToFix(c bazbom.Component, fixed string) string {
	artifact := c.Name
	groupID := c.Namespace

	var snippet string
	switch c.Ecosystem {
	case "Maven":
		snippet = fmt.Sprintf(
			"Update pom.xml:\n<dependency>\n  <groupId>%s</groupId>\n  <artifactId>%s</artifactId>\n  <version>%s</version>\n</dependency>\nThen run: mvn clean install",
			groupID, artifact, fixed)
	case "Gradle":
		snippet = fmt.Sprintf(
			"Update build.gradle or build.gradle.kts:\nimplementation(\"%s:%s:%s\")\nThen run: gradle build",
			groupID, artifact, fixed)
	case "Bazel":
		snippet = fmt.Sprintf(
			"Update maven_install in WORKSPACE or MODULE.bazel:\n\"%s:%s:%s\"\nThen run: bazel run @maven//:pin",
			groupID, artifact, fixed)
	case "npm":
		snippet = fmt.Sprintf("Update package.json:\n  \"%s\": \"%s\"\nThen run: npm install", c.PackageName(), fixed)
	case "PyPI":
		snippet = fmt.Sprintf("Update requirements.txt or pyproject.toml:\n  %s==%s\nThen run: pip install -r requirements.txt", artifact, fixed)
	case "Go":
		snippet = fmt.Sprintf("Run: go get %s@v%s && go mod tidy", artifact, strings.TrimPrefix(fixed, "v"))
	case "Cargo":
		snippet = fmt.Sprintf("Update Cargo.toml:\n  %s = \"%s\"\nThen run: cargo update -p %s", artifact, fixed, artifact)
	case "Ruby":
		snippet = fmt.Sprintf("Update Gemfile:\n  gem \"%s\", \"~> %s\"\nThen run: bundle update %s", artifact, fixed, artifact)
	case "Composer":
		snippet = fmt.Sprintf("Update composer.json:\n  \"%s\": \"^%s\"\nThen run: composer update %s", c.PURL, fixed, artifact)
	default:
		snippet = fmt.Sprintf("Upgrade %s from %s to %s", artifact, c.Version, fixed)
	}
	return fmt.Sprintf("Upgrade to version %s.\n\n%s", fixed, snippet)
}
