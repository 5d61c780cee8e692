// Package bazel parses Bazel's pinned Maven dependency lockfile
// (maven_install.json, produced by rules_jvm_external) and falls back to
// scraping artifact coordinates out of MODULE.bazel / WORKSPACE when no
// lockfile is present.
package bazel

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/ecosystem"
	"github.com/bazbom/bazbom/purl"
)

const ecosystemName = "Bazel"

// Scanner implements [ecosystem.Parser] for Bazel's pinned Maven
// dependency graph.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner { return &Scanner{} }

// Name implements [ecosystem.Parser].
func (s *Scanner) Name() string { return ecosystemName }

// Detect implements [ecosystem.Parser].
func (s *Scanner) Detect(root string) bool {
	for _, marker := range []string{"maven_install.json", "MODULE.bazel", "WORKSPACE"} {
		if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
			return true
		}
	}
	return false
}

type mavenInstallJSON struct {
	DependencyTree struct {
		Dependencies []mavenInstallDep `json:"dependencies"`
	} `json:"dependencyTree"`
}

type mavenInstallDep struct {
	Coord string `json:"coord"`
}

// artifactCoord matches a group:artifact:version coordinate, the same
// shape maven_install.json's "coord" field and MODULE.bazel's
// maven.artifact()/maven_install() coordinate strings both use.
var artifactCoord = regexp.MustCompile(`([\w.\-]+):([\w.\-]+):([\w.\-]+)`)

// Scan implements [ecosystem.Parser].
func (s *Scanner) Scan(ctx context.Context, root string, cache *ecosystem.LicenseCache) (bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "ecosystem/bazel/Scanner.Scan")
	result := bazbom.EcosystemScanResult{Ecosystem: ecosystemName, Root: root}

	lockPath := filepath.Join(root, "maven_install.json")
	if b, err := os.ReadFile(lockPath); err == nil {
		if err := parseMavenInstall(b, &result); err != nil {
			result.Warnings = append(result.Warnings, "maven_install.json: "+err.Error())
		}
		zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
		return result, nil
	}

	for _, name := range []string{"MODULE.bazel", "WORKSPACE"} {
		p := filepath.Join(root, name)
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		parseCoords(b, &result)
	}

	zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
	return result, nil
}

func parseMavenInstall(b []byte, result *bazbom.EcosystemScanResult) error {
	var doc mavenInstallJSON
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	reg := purl.NewRegistry()
	seen := make(map[string]bool)
	for _, dep := range doc.DependencyTree.Dependencies {
		parts := strings.Split(dep.Coord, ":")
		if len(parts) < 3 {
			continue
		}
		group, artifact, version := parts[0], parts[1], parts[2]
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

func parseCoords(b []byte, result *bazbom.EcosystemScanResult) {
	reg := purl.NewRegistry()
	seen := make(map[string]bool)
	for _, m := range artifactCoord.FindAllStringSubmatch(string(b), -1) {
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
}
