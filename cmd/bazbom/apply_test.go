package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/report"
)

func TestLoadSuggestionsRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "polyglot-vulns.json")

	want := []bazbom.RemediationSuggestion{
		{VulnID: "CVE-2024-0001", Ecosystem: "npm", Package: "left-pad", CurrentVersion: "1.0.0", FixedVersion: "1.0.1", Priority: bazbom.P1},
		{VulnID: "CVE-2024-0002", Ecosystem: "Maven", Package: "log4j-core", CurrentVersion: "2.14.1", FixedVersion: "2.17.1", Priority: bazbom.P0},
	}
	r := report.NewPolyglotVulnReport("2026-01-01T00:00:00Z", nil, want)
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := loadSuggestions(path)
	if err != nil {
		t.Fatalf("loadSuggestions: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d suggestions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].VulnID != want[i].VulnID || got[i].Ecosystem != want[i].Ecosystem {
			t.Errorf("suggestion %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadSuggestionsMissingFile(t *testing.T) {
	if _, err := loadSuggestions(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing findings file")
	}
}
