package apply

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bazbom/bazbom"
)

func TestApplyMavenStringLevelMutation(t *testing.T) {
	dir := t.TempDir()
	pom := `<project>
  <dependencies>
    <dependency>
      <groupId>commons-io</groupId>
      <artifactId>commons-io</artifactId>
      <version>2.6</version>
    </dependency>
  </dependencies>
</project>
`
	if err := os.WriteFile(filepath.Join(dir, "pom.xml"), []byte(pom), 0o644); err != nil {
		t.Fatal(err)
	}

	suggestions := []bazbom.RemediationSuggestion{
		{Package: "commons-io:commons-io", CurrentVersion: "2.6", FixedVersion: "2.7"},
	}
	res, err := Apply(context.Background(), dir, "Maven", suggestions, Options{SkipTests: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Applied != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	updated, err := os.ReadFile(filepath.Join(dir, "pom.xml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(updated), "<version>2.7</version>") {
		t.Errorf("pom.xml not updated: %s", updated)
	}
	if strings.Contains(string(updated), "<version>2.6</version>") {
		t.Errorf("old version still present: %s", updated)
	}
}

func TestApplySkipsSuggestionsWithNoFix(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"dependencies":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	suggestions := []bazbom.RemediationSuggestion{
		{Package: "left-pad", CurrentVersion: "1.0.0"},
	}
	res, err := Apply(context.Background(), dir, "npm", suggestions, Options{SkipTests: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped != 1 || res.Applied != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestApplyRecordsFailureWhenDeclarationMissing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[dependencies]\nserde = \"1.0.100\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	suggestions := []bazbom.RemediationSuggestion{
		{Package: "serde", CurrentVersion: "0.9.0", FixedVersion: "1.0.101"},
	}
	res, err := Apply(context.Background(), dir, "Cargo", suggestions, Options{SkipTests: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Applied != 0 {
		t.Fatalf("expected one recorded failure, got %+v", res)
	}
}

func TestNewBackupHandleTreeSnapshotRestoresFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(path, []byte("Django==2.0.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	backup, err := NewBackupHandle(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("Django==3.2.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := backup.Restore(); err != nil {
		t.Fatal(err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "Django==2.0.0\n" {
		t.Errorf("restore did not revert file, got %q", content)
	}
	_ = backup.Cleanup()
}
