package main

import (
	"testing"

	"github.com/bazbom/bazbom"
)

func matchWithFix(priority bazbom.Priority, level bazbom.Level, fixed bool, difficulty int) bazbom.VulnerabilityMatch {
	m := bazbom.VulnerabilityMatch{
		Vulnerability: bazbom.Vulnerability{
			Severity: &bazbom.Severity{Level: level},
		},
		Priority:        priority,
		DifficultyScore: difficulty,
	}
	if fixed {
		m.Vulnerability.Affected = []bazbom.AffectedPackage{{
			Ranges: []bazbom.VersionRange{{
				Events: []bazbom.VersionEvent{{Kind: bazbom.Fixed, Version: "9.9.9"}},
			}},
		}}
	}
	return m
}

func TestApplyFilterEmptyReturnsAll(t *testing.T) {
	matches := []bazbom.VulnerabilityMatch{matchWithFix(bazbom.P0, bazbom.Critical, true, 10)}
	got := applyFilter(matches, "")
	if len(got) != 1 {
		t.Fatalf("expected unfiltered passthrough, got %d", len(got))
	}
}

func TestMatchesFilterKEV(t *testing.T) {
	m := matchWithFix(bazbom.P1, bazbom.High, true, 20)
	if matchesFilter(m, "kev") {
		t.Error("expected no KEV match without a KEV entry")
	}
	m.KEV = &bazbom.KevEntry{}
	if !matchesFilter(m, "kev") {
		t.Error("expected KEV match once KEV is set")
	}
}

func TestMatchesFilterFixableAndQuickWins(t *testing.T) {
	fixable := matchWithFix(bazbom.P0, bazbom.Critical, true, 20)
	if !matchesFilter(fixable, "fixable") {
		t.Error("expected fixable match for a component with a Fixed event")
	}
	if !matchesFilter(fixable, "quick-wins") {
		t.Error("expected quick-wins match for a low-difficulty fixable P0")
	}

	hard := matchWithFix(bazbom.P0, bazbom.Critical, true, 80)
	if matchesFilter(hard, "quick-wins") {
		t.Error("expected no quick-wins match for a high-difficulty fix")
	}

	noFix := matchWithFix(bazbom.P0, bazbom.Critical, false, 0)
	if matchesFilter(noFix, "fixable") {
		t.Error("expected no fixable match without a Fixed event")
	}
}

func TestMatchesFilterSeverityLevels(t *testing.T) {
	m := matchWithFix(bazbom.P2, bazbom.Medium, false, 0)
	if !matchesFilter(m, "medium") {
		t.Error("expected medium severity match")
	}
	if matchesFilter(m, "high") {
		t.Error("expected no high severity match")
	}
}
