// Package gradle parses Gradle dependency declarations: gradle.lockfile
// (the source of truth when present) and build.gradle / build.gradle.kts
// (regex-extracted dependency coordinates otherwise).
package gradle

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/ecosystem"
	"github.com/bazbom/bazbom/purl"
)

const ecosystemName = "Gradle"

// Scanner implements [ecosystem.Parser] for Gradle.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner { return &Scanner{} }

// Name implements [ecosystem.Parser].
func (s *Scanner) Name() string { return ecosystemName }

// Detect implements [ecosystem.Parser].
func (s *Scanner) Detect(root string) bool {
	for _, marker := range []string{"build.gradle", "build.gradle.kts", "gradle.lockfile"} {
		if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
			return true
		}
	}
	return false
}

// lockfileLine matches a gradle.lockfile dependency entry, e.g.
// "com.google.guava:guava:31.1-jre=compileClasspath".
var lockfileLine = regexp.MustCompile(`^([^:=]+):([^:=]+):([^=]+)=`)

// buildGradleDep matches a Groovy/Kotlin DSL dependency declaration, e.g.
// implementation("com.google.guava:guava:31.1-jre") or
// implementation 'com.google.guava:guava:31.1-jre'.
var buildGradleDep = regexp.MustCompile(`['"]([\w.\-]+):([\w.\-]+):([\w.\-]+)['"]`)

// Scan implements [ecosystem.Parser].
func (s *Scanner) Scan(ctx context.Context, root string, cache *ecosystem.LicenseCache) (bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "ecosystem/gradle/Scanner.Scan")
	result := bazbom.EcosystemScanResult{Ecosystem: ecosystemName, Root: root}

	lockPath := filepath.Join(root, "gradle.lockfile")
	if _, err := os.Stat(lockPath); err == nil {
		if err := parseLockfile(lockPath, &result); err != nil {
			result.Warnings = append(result.Warnings, "gradle.lockfile: "+err.Error())
		}
		zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
		return result, nil
	}

	for _, name := range []string{"build.gradle.kts", "build.gradle"} {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := parseBuildFile(p, &result); err != nil {
			result.Warnings = append(result.Warnings, name+": "+err.Error())
		}
		break
	}

	zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
	return result, nil
}

func parseLockfile(path string, result *bazbom.EcosystemScanResult) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	reg := purl.NewRegistry()
	seen := make(map[string]bool)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "empty=") {
			continue
		}
		m := lockfileLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		group, artifact, version := m[1], m[2], m[3]
		key := group + ":" + artifact + ":" + version
		if seen[key] {
			continue
		}
		seen[key] = true
		p, _ := reg.Generate(ecosystemName, group, artifact, version)
		result.Components = append(result.Components, bazbom.Component{
			Name:      artifact,
			Version:   version,
			Ecosystem: ecosystemName,
			Namespace: group,
			PURL:      p,
			Location:  result.Root,
		})
	}
	return nil
}

func parseBuildFile(path string, result *bazbom.EcosystemScanResult) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	reg := purl.NewRegistry()
	seen := make(map[string]bool)
	for _, m := range buildGradleDep.FindAllStringSubmatch(string(b), -1) {
		group, artifact, version := m[1], m[2], m[3]
		key := group + ":" + artifact + ":" + version
		if seen[key] {
			continue
		}
		seen[key] = true
		p, _ := reg.Generate(ecosystemName, group, artifact, version)
		result.Components = append(result.Components, bazbom.Component{
			Name:      artifact,
			Version:   version,
			Ecosystem: ecosystemName,
			Namespace: group,
			PURL:      p,
			Location:  result.Root,
		})
	}
	return nil
}
