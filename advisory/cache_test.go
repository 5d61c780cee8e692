package advisory

import (
	"testing"

	"github.com/bazbom/bazbom"
)

func TestEncodeDecodeKeyRoundTrip(t *testing.T) {
	tt := []string{
		"CVE-2023-12345",
		"alpine/v3.18:CVE-2023-12345",
		"GHSA-xxxx-yyyy-zzzz",
		"pkg_with_under_score",
		"a/b:c_d",
	}
	for _, key := range tt {
		enc := encodeKey(key)
		if got := decodeKey(enc); got != key {
			t.Errorf("decodeKey(encodeKey(%q)) = %q, want %q", key, got, key)
		}
	}
}

func TestOSVIDVariants(t *testing.T) {
	tt := []struct {
		cve, hint string
		want      []string
	}{
		{"CVE-2023-1", "", []string{"CVE-2023-1"}},
		{"CVE-2023-1", "Alpine Linux", []string{"ALPINE-CVE-2023-1", "CVE-2023-1"}},
		{"CVE-2023-1", "debian", []string{"DSA-CVE-2023-1", "CVE-2023-1"}},
		{"CVE-2023-1", "Ubuntu", []string{"USN-CVE-2023-1", "CVE-2023-1"}},
		{"CVE-2023-1", "Red Hat Enterprise Linux (RHEL)", []string{"RHSA-CVE-2023-1", "CVE-2023-1"}},
	}
	for _, tc := range tt {
		got := osvIDVariants(tc.cve, tc.hint)
		if len(got) != len(tc.want) {
			t.Fatalf("osvIDVariants(%q, %q) = %v, want %v", tc.cve, tc.hint, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("osvIDVariants(%q, %q)[%d] = %q, want %q", tc.cve, tc.hint, i, got[i], tc.want[i])
			}
		}
	}
}

func TestSeverityFromOSV(t *testing.T) {
	rec := osvRecord{
		Severity: []osvSeverityEntry{
			{Type: "CVSS_V3", Score: "9.8"},
		},
	}
	sev := severityFromOSV(rec)
	if sev == nil {
		t.Fatal("severityFromOSV returned nil")
	}
	if sev.Level != bazbom.Critical {
		t.Errorf("Level = %v, want Critical", sev.Level)
	}

	rec = osvRecord{
		DatabaseSpecific: map[string]any{"severity": "HIGH"},
	}
	sev = severityFromOSV(rec)
	if sev == nil || sev.Level != bazbom.High {
		t.Errorf("database_specific fallback: got %+v, want High", sev)
	}

	if severityFromOSV(osvRecord{}) != nil {
		t.Error("empty record should yield nil severity")
	}
}
