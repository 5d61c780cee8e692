package npm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bazbom/bazbom/ecosystem"
)

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	s := New()
	if s.Detect(dir) {
		t.Fatal("Detect true with no package.json")
	}
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !s.Detect(dir) {
		t.Fatal("Detect false with package.json present")
	}
}

func TestScanPackageJSONOnly(t *testing.T) {
	dir := t.TempDir()
	manifest := `{
		"name": "test-package",
		"version": "1.0.0",
		"dependencies": {
			"express": "^4.18.0",
			"@types/node": "^18.0.0"
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New()
	cache := ecosystem.NewLicenseCache()
	result, err := s.Scan(context.Background(), dir, cache)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Components) != 2 {
		t.Fatalf("got %d components, want 2", len(result.Components))
	}

	var sawExpress, sawTypesNode bool
	for _, c := range result.Components {
		switch {
		case c.Name == "express" && c.Version == "4.18.0":
			sawExpress = true
		case c.Name == "node" && c.Namespace == "@types" && c.Version == "18.0.0":
			sawTypesNode = true
		}
	}
	if !sawExpress {
		t.Error("missing express@4.18.0")
	}
	if !sawTypesNode {
		t.Error("missing @types/node@18.0.0")
	}
}

func TestParseYarnLock(t *testing.T) {
	dir := t.TempDir()
	yarnLock := `# yarn lockfile v1

"@babel/code-frame@^7.0.0":
  version "7.18.6"
  resolved "https://registry.yarnpkg.com/@babel/code-frame/-/code-frame-7.18.6.tgz"
  integrity sha512-abc
  dependencies:
    "@babel/highlight" "^7.18.6"

express@^4.18.0:
  version "4.18.2"
  resolved "https://registry.yarnpkg.com/express/-/express-4.18.2.tgz"
  integrity sha512-def
`
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"dependencies":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "yarn.lock"), []byte(yarnLock), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New()
	cache := ecosystem.NewLicenseCache()
	result, err := s.Scan(context.Background(), dir, cache)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Components) != 2 {
		t.Fatalf("got %d components, want 2: %+v", len(result.Components), result.Components)
	}

	var codeFrame, express bool
	for _, c := range result.Components {
		switch {
		case c.Name == "code-frame" && c.Namespace == "@babel" && c.Version == "7.18.6":
			codeFrame = true
			if len(c.DirectDeps) != 1 || c.DirectDeps[0] != "@babel/highlight" {
				t.Errorf("code-frame deps = %v, want [@babel/highlight]", c.DirectDeps)
			}
		case c.Name == "express" && c.Version == "4.18.2":
			express = true
		}
	}
	if !codeFrame {
		t.Error("missing @babel/code-frame@7.18.6")
	}
	if !express {
		t.Error("missing express@4.18.2")
	}
}

func TestParsePnpmPackagePath(t *testing.T) {
	tt := []struct {
		path        string
		wantName    string
		wantVersion string
		wantOK      bool
	}{
		{"/express@4.18.2", "express", "4.18.2", true},
		{"/@babel/code-frame@7.18.6", "@babel/code-frame", "7.18.6", true},
		{"/@babel/code-frame@7.18.6:", "@babel/code-frame", "7.18.6", true},
		{"/express@4.18.2(patch_hash=abc123)", "express", "4.18.2", true},
		{"not-a-path", "", "", false},
	}
	for _, tc := range tt {
		name, version, ok := parsePnpmPackagePath(tc.path)
		if ok != tc.wantOK || name != tc.wantName || version != tc.wantVersion {
			t.Errorf("parsePnpmPackagePath(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.path, name, version, ok, tc.wantName, tc.wantVersion, tc.wantOK)
		}
	}
}
