package enrich

import (
	"context"
	"net/http"
	"testing"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/advisory"
)

func newTestStore(t *testing.T) *advisory.Store {
	t.Helper()
	s, err := advisory.NewStore(t.TempDir(), &http.Client{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestEnrichCVSSFromVectorOnly(t *testing.T) {
	store := newTestStore(t)
	matches := []bazbom.VulnerabilityMatch{
		{
			Vulnerability: bazbom.Vulnerability{
				ID: "CVE-2024-0001",
				Severity: &bazbom.Severity{
					CVSSv3: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
				},
			},
		},
	}
	out := Enrich(context.Background(), store, matches, "")
	sev := out[0].Vulnerability.Severity
	if sev == nil || !sev.HasScore {
		t.Fatalf("expected derived score, got %+v", sev)
	}
	if sev.Score < 9.0 {
		t.Errorf("score = %v, want >= 9.0 for this vector", sev.Score)
	}
	if sev.Level != bazbom.Critical {
		t.Errorf("level = %v, want Critical", sev.Level)
	}
}

func TestEnrichIdempotent(t *testing.T) {
	store := newTestStore(t)
	matches := []bazbom.VulnerabilityMatch{
		{
			Vulnerability: bazbom.Vulnerability{
				ID: "CVE-2024-0002",
				Severity: &bazbom.Severity{
					CVSSv3: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
				},
			},
		},
	}
	first := Enrich(context.Background(), store, matches, "")
	firstScore := first[0].Vulnerability.Severity.Score
	second := Enrich(context.Background(), store, first, "")
	if second[0].Vulnerability.Severity.Score != firstScore {
		t.Errorf("re-running enrich changed score: %v -> %v", firstScore, second[0].Vulnerability.Severity.Score)
	}
}

func TestEnrichSkipsNonCVEForOSVFallback(t *testing.T) {
	store := newTestStore(t)
	matches := []bazbom.VulnerabilityMatch{
		{Vulnerability: bazbom.Vulnerability{ID: "GHSA-xxxx-yyyy-zzzz"}},
	}
	out := Enrich(context.Background(), store, matches, "")
	if out[0].Vulnerability.Severity != nil {
		t.Errorf("expected no severity fallback for a non-CVE ID, got %+v", out[0].Vulnerability.Severity)
	}
}
