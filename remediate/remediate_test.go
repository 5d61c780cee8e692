package remediate

import (
	"strings"
	"testing"

	"github.com/bazbom/bazbom"
)

func matchWithFix(ecosystem, name, current, fixed string) bazbom.VulnerabilityMatch {
	c := bazbom.Component{Ecosystem: ecosystem, Name: name, Version: current}
	return bazbom.VulnerabilityMatch{
		Component: c,
		Vulnerability: bazbom.Vulnerability{
			ID: "CVE-2024-0001",
			Affected: []bazbom.AffectedPackage{
				{
					Ecosystem: ecosystem,
					Package:   c.PackageName(),
					Ranges: []bazbom.VersionRange{{
						RangeType: bazbom.RangeSemver,
						Events:    []bazbom.VersionEvent{{Kind: bazbom.Fixed, Version: fixed}},
					}},
				},
			},
		},
	}
}

func TestSynthesizeNoFix(t *testing.T) {
	m := bazbom.VulnerabilityMatch{
		Component:     bazbom.Component{Ecosystem: "npm", Name: "left-pad", Version: "1.0.0"},
		Vulnerability: bazbom.Vulnerability{ID: "CVE-2024-0002"},
	}
	if s := Synthesize(m); s != nil {
		t.Fatalf("expected nil suggestion with no fix, got %+v", s)
	}
}

func TestSynthesizeMavenSnippet(t *testing.T) {
	m := matchWithFix("Maven", "commons-io", "2.6", "2.7")
	m.Component.Namespace = "commons-io"
	m.Vulnerability.Affected[0].Package = m.Component.PackageName()
	s := Synthesize(m)
	if s == nil {
		t.Fatal("expected a suggestion")
	}
	if !strings.Contains(s.HowToFix, "pom.xml") || !strings.Contains(s.HowToFix, "mvn clean install") {
		t.Errorf("HowToFix missing Maven snippet: %s", s.HowToFix)
	}
}

func TestWhyFixOrder(t *testing.T) {
	m := matchWithFix("npm", "lodash", "4.17.15", "4.17.19")
	m.Vulnerability.Severity = &bazbom.Severity{Level: bazbom.Critical}
	m.KEV = &bazbom.KevEntry{CVEID: "CVE-2024-0001"}
	m.EPSS = &bazbom.EpssScore{Score: 0.95}
	m.Vulnerability.Summary = "prototype pollution"
	s := Synthesize(m)
	if s == nil {
		t.Fatal("expected a suggestion")
	}
	wantOrder := []string{"CRITICAL severity", "Listed in CISA KEV", "Very high exploit probability", "Impact: prototype pollution"}
	last := -1
	for _, phrase := range wantOrder {
		idx := strings.Index(s.WhyFix, phrase)
		if idx < 0 {
			t.Fatalf("why_fix missing phrase %q: %s", phrase, s.WhyFix)
		}
		if idx < last {
			t.Fatalf("why_fix phrase %q out of order: %s", phrase, s.WhyFix)
		}
		last = idx
	}
}

func TestBreakingChangesMajorSpringFramework(t *testing.T) {
	text := breakingChanges("Maven", "org.springframework:spring-core", "5.3.0", "6.0.0")
	if !strings.Contains(text, "MAJOR VERSION UPGRADE") {
		t.Error("missing MAJOR VERSION UPGRADE")
	}
	if !strings.Contains(text, "5.3.0 → 6.0.0") {
		t.Error("missing version transition")
	}
	if !strings.Contains(text, "Spring Framework specific considerations") {
		t.Error("missing Spring-specific guidance")
	}
}

func TestBreakingChangesMinor(t *testing.T) {
	text := breakingChanges("Maven", "com.fasterxml.jackson.core:jackson-databind", "2.13.0", "2.14.0")
	if !strings.Contains(text, "Minor version upgrade") || !strings.Contains(text, "2.13.0 → 2.14.0") || !strings.Contains(text, "backward compatible") {
		t.Errorf("unexpected minor warning: %s", text)
	}
}

func TestBreakingChangesPatch(t *testing.T) {
	text := breakingChanges("Maven", "org.apache.logging.log4j:log4j-core", "2.17.0", "2.17.1")
	if !strings.Contains(text, "Patch version upgrade") || !strings.Contains(text, "2.17.0 → 2.17.1") || !strings.Contains(text, "fully backward compatible") {
		t.Errorf("unexpected patch warning: %s", text)
	}
}

func TestBreakingChangesUnparseable(t *testing.T) {
	text := breakingChanges("npm", "test-package", "alpha", "beta")
	if !strings.Contains(text, "Cannot parse semantic version") {
		t.Errorf("unexpected unparseable warning: %s", text)
	}
}

func TestBreakingChangesCargoPre1(t *testing.T) {
	text := breakingChanges("Cargo", "some-crate", "0.8.0", "0.9.0")
	if !strings.Contains(text, "MAJOR VERSION UPGRADE") {
		t.Errorf("pre-1.0 minor bump should classify as breaking: %s", text)
	}
}

func TestBreakingChangesGoModuleV2(t *testing.T) {
	text := breakingChanges("Go", "github.com/x/y", "1.5.0", "2.0.0")
	if !strings.Contains(text, "/v2") {
		t.Errorf("missing /v2 import-path guidance: %s", text)
	}
}
