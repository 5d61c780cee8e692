package pypi

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bazbom/bazbom/ecosystem"
)

func TestParseRequirementLine(t *testing.T) {
	tt := []struct {
		line        string
		wantName    string
		wantVersion string
		wantOK      bool
	}{
		{"Django==3.2.0", "Django", "3.2.0", true},
		{"requests>=2.25.0", "requests", "2.25.0", true},
		{"pytest~=7.0", "pytest", "7.0", true},
		{`six==1.16.0 ; python_version >= "3.6"`, "six", "1.16.0", true},
		{"# comment", "", "", false},
	}
	for _, tc := range tt {
		name, version, ok := parseRequirementLine(tc.line)
		if ok != tc.wantOK || name != tc.wantName || version != tc.wantVersion {
			t.Errorf("parseRequirementLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.line, name, version, ok, tc.wantName, tc.wantVersion, tc.wantOK)
		}
	}
}

func TestScanRequirementsTxt(t *testing.T) {
	dir := t.TempDir()
	content := `
# This is a comment
Django==3.2.0
requests>=2.25.0
pytest~=7.0

# Another comment
six==1.16.0 ; python_version >= "3.6"
`
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New()
	cache := ecosystem.NewLicenseCache()
	result, err := s.Scan(context.Background(), dir, cache)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Components) != 4 {
		t.Fatalf("got %d components, want 4: %+v", len(result.Components), result.Components)
	}
	want := map[string]string{"Django": "3.2.0", "requests": "2.25.0", "pytest": "7.0", "six": "1.16.0"}
	for _, c := range result.Components {
		if v, ok := want[c.Name]; !ok || v != c.Version {
			t.Errorf("unexpected component %+v", c)
		}
	}
}

func TestExtractPoetryVersion(t *testing.T) {
	tt := []struct{ spec, want string }{
		{"^1.2.3", "1.2.3"},
		{"~1.2", "1.2"},
		{">=1.0", "1.0"},
		{"1.2.3", "1.2.3"},
	}
	for _, tc := range tt {
		if got := extractPoetryVersion(tc.spec); got != tc.want {
			t.Errorf("extractPoetryVersion(%q) = %q, want %q", tc.spec, got, tc.want)
		}
	}
}

func TestLockfilePreferredOverManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("Django==2.0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	poetryLockContent := `
[[package]]
name = "Django"
version = "3.2.0"
description = ""
`
	if err := os.WriteFile(filepath.Join(dir, "poetry.lock"), []byte(poetryLockContent), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New()
	cache := ecosystem.NewLicenseCache()
	result, err := s.Scan(context.Background(), dir, cache)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Components) != 1 || result.Components[0].Version != "3.2.0" {
		t.Fatalf("expected poetry.lock version 3.2.0 to win, got %+v", result.Components)
	}
}
