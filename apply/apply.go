// Package apply implements the transactional applier (C10): it mutates
// manifests in place to apply remediation suggestions, then runs the
// project's test command and rolls the whole transaction back if tests
// fail, per spec §4.10's protocol.
package apply

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
)

// Result is the outcome of one transactional apply.
type Result struct {
	Applied    int
	Failed     int
	Skipped    int
	Errors     []string
	TestsRun   bool
	TestsPass  bool
	TestOutput string
}

// Options controls one Apply call.
type Options struct {
	SkipTests bool

	// TestTimeout bounds the ecosystem test command, per spec §5.
	// Zero means DefaultTestTimeout.
	TestTimeout time.Duration
}

// DefaultTestTimeout is the test-command timeout used when
// Options.TestTimeout is unset, per spec §5.
const DefaultTestTimeout = 10 * time.Minute

// Apply runs the full transaction protocol from spec §4.10: create a
// backup, mutate every suggestion's manifest, optionally run the
// ecosystem's test command, and restore the backup if tests fail. A
// per-suggestion mutation failure is recorded and counted against
// Failed, not treated as a transaction abort; only a test failure rolls
// the whole transaction back. ecosystem identifies which build system's
// manifest and test command the suggestions belong to — callers apply
// one project root's suggestions per call, so this is always known.
func Apply(ctx context.Context, root, ecosystem string, suggestions []bazbom.RemediationSuggestion, opts Options) (Result, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "apply/Apply", "root", root, "ecosystem", ecosystem)

	backup, err := NewBackupHandle(root)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, s := range suggestions {
		if s.FixedVersion == "" {
			res.Skipped++
			continue
		}
		if err := applyOne(root, s); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", s.Package, err))
			zlog.Warn(ctx).Err(err).Str("package", s.Package).Msg("failed to apply suggestion")
			continue
		}
		res.Applied++
	}

	if res.Applied == 0 || opts.SkipTests || !hasTests(root, ecosystem) {
		if err := backup.Cleanup(); err != nil {
			zlog.Warn(ctx).Err(err).Msg("backup cleanup failed")
		}
		return res, nil
	}

	timeout := opts.TestTimeout
	if timeout <= 0 {
		timeout = DefaultTestTimeout
	}

	res.TestsRun = true
	output, testErr := runTests(ctx, root, ecosystem, timeout)
	res.TestOutput = output
	if testErr == nil {
		res.TestsPass = true
		if err := backup.Cleanup(); err != nil {
			zlog.Warn(ctx).Err(err).Msg("backup cleanup failed")
		}
		return res, nil
	}

	res.TestsPass = false
	zlog.Warn(ctx).Err(testErr).Msg("tests failed, rolling back transaction")
	if err := backup.Restore(); err != nil {
		return res, &bazbom.Error{Kind: bazbom.ErrInternal, Op: "apply.Apply", Message: "rollback failed after test failure", Inner: err}
	}
	return res, &bazbom.Error{Kind: bazbom.ErrInvalid, Op: "apply.Apply", Message: "tests failed, changes rolled back", Inner: testErr}
}

// applyOne locates the manifest for s's ecosystem and substitutes its
// current version for the fixed one, string-level, per spec §4.10.
func applyOne(root string, s bazbom.RemediationSuggestion) error {
	manifest, mutate := manifestFor(root, s)
	if manifest == "" {
		return fmt.Errorf("no manifest found for package %s", s.Package)
	}
	content, err := os.ReadFile(manifest)
	if err != nil {
		return err
	}
	updated, found := mutate(string(content), s)
	if !found {
		return fmt.Errorf("declaration for %s@%s not found in %s", s.Package, s.CurrentVersion, filepath.Base(manifest))
	}
	return os.WriteFile(manifest, []byte(updated), 0o644)
}

type mutator func(content string, s bazbom.RemediationSuggestion) (string, bool)

// manifestFor returns the manifest path and mutation strategy for a
// suggestion, probing for the files that exist under root in the order
// a polyglot workspace's build systems are conventionally laid out.
func manifestFor(root string, s bazbom.RemediationSuggestion) (string, mutator) {
	candidates := []struct {
		path string
		fn   mutator
	}{
		{filepath.Join(root, "pom.xml"), mutateXMLDependency},
		{filepath.Join(root, "build.gradle.kts"), mutateLineDependency},
		{filepath.Join(root, "build.gradle"), mutateLineDependency},
		{filepath.Join(root, "MODULE.bazel"), mutateLineDependency},
		{filepath.Join(root, "WORKSPACE"), mutateLineDependency},
		{filepath.Join(root, "package.json"), mutateLineDependency},
		{filepath.Join(root, "Cargo.toml"), mutateLineDependency},
		{filepath.Join(root, "requirements.txt"), mutateLineDependency},
		{filepath.Join(root, "Gemfile"), mutateLineDependency},
		{filepath.Join(root, "composer.json"), mutateLineDependency},
		{filepath.Join(root, "go.mod"), mutateLineDependency},
	}
	for _, c := range candidates {
		if _, err := os.Stat(c.path); err == nil {
			return c.path, c.fn
		}
	}
	return "", nil
}

// mutateXMLDependency implements pom.xml's short lookahead: find the
// <artifactId> line naming the package, then the nearest <version> line
// carrying the current version within the four lines that follow it,
// and substitute it.
func mutateXMLDependency(content string, s bazbom.RemediationSuggestion) (string, bool) {
	artifact := lastSegment(s.Package)
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "<artifactId>") || !strings.Contains(line, artifact) {
			continue
		}
		end := i + 5
		if end > len(lines) {
			end = len(lines)
		}
		for j := i + 1; j < end; j++ {
			if strings.Contains(lines[j], "<version>") && strings.Contains(lines[j], s.CurrentVersion) {
				lines[j] = strings.Replace(lines[j], s.CurrentVersion, s.FixedVersion, 1)
				return strings.Join(lines, "\n"), true
			}
		}
	}
	return content, false
}

// mutateLineDependency covers every manifest format where the artifact
// name and its version specifier appear on the same line: find the first
// line containing both the artifact and its current version, and
// substitute the version on that line only.
func mutateLineDependency(content string, s bazbom.RemediationSuggestion) (string, bool) {
	artifact := lastSegment(s.Package)
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.Contains(line, artifact) && strings.Contains(line, s.CurrentVersion) {
			lines[i] = strings.Replace(line, s.CurrentVersion, s.FixedVersion, 1)
			return strings.Join(lines, "\n"), true
		}
	}
	return content, false
}

func lastSegment(pkg string) string {
	if i := strings.LastIndex(pkg, ":"); i >= 0 {
		return pkg[i+1:]
	}
	if i := strings.LastIndex(pkg, "/"); i >= 0 {
		return pkg[i+1:]
	}
	return pkg
}

// hasTests reports whether root appears to carry a test suite for
// ecosystem, per each build system's conventional test layout.
func hasTests(root, ecosystem string) bool {
	if ecosystem == "Go" {
		return hasGoTestFiles(root)
	}
	probes := map[string][]string{
		"Maven":    {"src/test"},
		"Gradle":   {"src/test"},
		"Bazel":    {"src/test"},
		"npm":      {"test", "tests", "__tests__"},
		"PyPI":     {"tests", "test"},
		"Cargo":    {"tests"},
		"Ruby":     {"spec", "test"},
		"Composer": {"tests"},
	}
	dirs, ok := probes[ecosystem]
	if !ok {
		return false
	}
	for _, d := range dirs {
		if info, err := os.Stat(filepath.Join(root, d)); err == nil && info.IsDir() {
			return true
		}
	}
	return false
}

func hasGoTestFiles(root string) bool {
	found := false
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || found {
			return nil
		}
		if info.IsDir() && excludedDirs[info.Name()] {
			return filepath.SkipDir
		}
		if !info.IsDir() && strings.HasSuffix(path, "_test.go") {
			found = true
		}
		return nil
	})
	return found
}

// testCommand returns the build system's conventional test invocation.
func testCommand(ecosystem string) (string, []string) {
	switch ecosystem {
	case "Maven":
		return "mvn", []string{"test"}
	case "Gradle":
		return "gradle", []string{"test"}
	case "Bazel":
		return "bazel", []string{"test", "//..."}
	case "npm":
		return "npm", []string{"test"}
	case "PyPI":
		return "pytest", nil
	case "Go":
		return "go", []string{"test", "./..."}
	case "Cargo":
		return "cargo", []string{"test"}
	case "Ruby":
		return "bundle", []string{"exec", "rspec"}
	case "Composer":
		return "composer", []string{"test"}
	default:
		return "", nil
	}
}

// runTests invokes the build system's test command with the current
// process's environment inherited, per spec §4.10's "run with inherited
// env" requirement.
func runTests(ctx context.Context, root, ecosystem string, timeout time.Duration) (string, error) {
	name, args := testCommand(ecosystem)
	if name == "" {
		return "", fmt.Errorf("no test command known for ecosystem %q", ecosystem)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(tctx, name, args...)
	cmd.Dir = root
	cmd.Env = os.Environ()
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}
