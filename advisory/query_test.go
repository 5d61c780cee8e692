package advisory

import (
	"testing"

	"github.com/bazbom/bazbom"
)

func TestOSVEcosystemName(t *testing.T) {
	cases := map[string]string{
		"Maven":  "Maven",
		"Gradle": "Maven",
		"Bazel":  "Maven",
		"npm":    "npm",
		"PyPI":   "PyPI",
		"Cargo":  "crates.io",
		"Go":     "Go",
		"Ruby":   "RubyGems",
	}
	for in, want := range cases {
		if got := osvEcosystemName(in); got != want {
			t.Errorf("osvEcosystemName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestVulnerabilityFromOSVTranslatesAffectedRanges(t *testing.T) {
	v := osvVuln{
		ID:      "GHSA-xxxx-yyyy-zzzz",
		Aliases: []string{"CVE-2021-44228"},
		Summary: "Remote code execution",
		Affected: []osvAffected{
			{
				Package: osvQueryPkg{Name: "log4j-core", Ecosystem: "Maven"},
				Ranges: []osvRange{
					{
						Type: "ECOSYSTEM",
						Events: []osvEvent{
							{Introduced: "2.0"},
							{Fixed: "2.15.0"},
						},
					},
				},
			},
		},
		References: []osvReference{{URL: "https://example.invalid/advisory"}},
	}

	vuln := vulnerabilityFromOSV(v, "Maven", "log4j-core")
	if vuln.ID != "GHSA-xxxx-yyyy-zzzz" {
		t.Errorf("ID = %q", vuln.ID)
	}
	if len(vuln.Aliases) != 1 || vuln.Aliases[0] != "CVE-2021-44228" {
		t.Errorf("aliases = %v", vuln.Aliases)
	}
	if len(vuln.Affected) != 1 || len(vuln.Affected[0].Ranges) != 1 {
		t.Fatalf("affected = %+v", vuln.Affected)
	}
	events := vuln.Affected[0].Ranges[0].Events
	if len(events) != 2 || events[0].Kind != bazbom.Introduced || events[1].Kind != bazbom.Fixed {
		t.Errorf("events = %+v", events)
	}
	if events[1].Version != "2.15.0" {
		t.Errorf("fixed version = %q, want 2.15.0", events[1].Version)
	}
	if len(vuln.References) != 1 || vuln.References[0] != "https://example.invalid/advisory" {
		t.Errorf("references = %v", vuln.References)
	}
}
