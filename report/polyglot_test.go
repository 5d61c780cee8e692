package report

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/bazbom/bazbom"
)

func TestPolyglotSBOMGroupsByEcosystem(t *testing.T) {
	components := []bazbom.Component{
		{Name: "lodash", Version: "4.17.21", Ecosystem: "npm"},
		{Name: "requests", Version: "2.31.0", Ecosystem: "PyPI"},
		{Name: "flask", Version: "2.3.0", Ecosystem: "PyPI"},
	}
	sbom := NewPolyglotSBOM("2026-07-30T00:00:00Z", components)
	if len(sbom.ByEcosystem["PyPI"]) != 2 {
		t.Fatalf("expected 2 PyPI components, got %v", sbom.ByEcosystem["PyPI"])
	}
	if len(sbom.ByEcosystem["npm"]) != 1 {
		t.Fatalf("expected 1 npm component, got %v", sbom.ByEcosystem["npm"])
	}

	r, err := sbom.Encode()
	if err != nil {
		t.Fatal(err)
	}
	var decoded PolyglotSBOM
	if err := json.NewDecoder(r).Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Components) != 3 {
		t.Errorf("round-trip lost components: %+v", decoded)
	}
}

func TestScanResultPolicyViolation(t *testing.T) {
	matches := []bazbom.VulnerabilityMatch{
		{Priority: bazbom.P0},
		{Priority: bazbom.P0},
		{Priority: bazbom.P3},
	}
	res := NewScanResult("2026-07-30T00:00:00Z", "./", matches, 1, nil)
	if !res.PolicyViolated {
		t.Error("expected policy violation with 2 P0 findings against a threshold of 1")
	}
	if res.CriticalCount != 2 {
		t.Errorf("critical count = %d, want 2", res.CriticalCount)
	}

	clean := NewScanResult("2026-07-30T00:00:00Z", "./", matches, 5, nil)
	if clean.PolicyViolated {
		t.Error("expected no policy violation with threshold 5")
	}
}

func TestBaselineDiffFindsOnlyNewVulns(t *testing.T) {
	baseline := NewBaseline("myimage:1.0", "2026-07-01T00:00:00Z", []bazbom.VulnerabilityMatch{
		{Vulnerability: bazbom.Vulnerability{ID: "CVE-2024-0001"}},
	})
	current := []bazbom.VulnerabilityMatch{
		{Vulnerability: bazbom.Vulnerability{ID: "CVE-2024-0001"}},
		{Vulnerability: bazbom.Vulnerability{ID: "CVE-2024-0002"}},
	}
	fresh := NewFindings(baseline, current)
	if len(fresh) != 1 || fresh[0].Vulnerability.ID != "CVE-2024-0002" {
		t.Errorf("expected only CVE-2024-0002, got %+v", fresh)
	}
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
