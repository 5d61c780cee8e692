// Package rubygems parses Ruby dependency manifests and lockfiles:
// Gemfile.lock (the resolved graph, under a line-indented GEM/specs
// block) and Gemfile (direct requirements only).
package rubygems

import (
	"bufio"
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

const ecosystemName = "Ruby"

// Scanner implements [ecosystem.Parser] for RubyGems.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner { return &Scanner{} }

// Name implements [ecosystem.Parser].
func (s *Scanner) Name() string { return ecosystemName }

// Detect implements [ecosystem.Parser].
func (s *Scanner) Detect(root string) bool {
	_, err := os.Stat(filepath.Join(root, "Gemfile"))
	return err == nil
}

// specLine matches a Gemfile.lock "    name (version)" entry within the
// GEM/specs: block, e.g. "    rack (2.2.3)".
var specLine = regexp.MustCompile(`^\s{4}([\w.\-]+)\s+\(([^)]+)\)`)

// gemfileDep matches a Gemfile top-level `gem "name", "version"` call.
var gemfileDep = regexp.MustCompile(`^gem\s+['"]([\w.\-]+)['"](?:\s*,\s*['"]([^'"]+)['"])?`)

// Scan implements [ecosystem.Parser].
func (s *Scanner) Scan(ctx context.Context, root string, cache *ecosystem.LicenseCache) (bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "ecosystem/rubygems/Scanner.Scan")
	result := bazbom.EcosystemScanResult{Ecosystem: ecosystemName, Root: root}

	lockPath := filepath.Join(root, "Gemfile.lock")
	if _, err := os.Stat(lockPath); err == nil {
		if err := parseGemfileLock(lockPath, &result); err != nil {
			result.Warnings = append(result.Warnings, "Gemfile.lock: "+err.Error())
		}
		zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
		return result, nil
	}

	if err := parseGemfile(filepath.Join(root, "Gemfile"), &result); err != nil {
		result.Warnings = append(result.Warnings, "Gemfile: "+err.Error())
	}
	zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
	return result, nil
}

// parseGemfileLock reads every "    name (version)" line under the
// GEM/specs: section. It does not distinguish that section from
// PATH/GIT sources' own specs: blocks, which share the same indentation
// convention, since all are resolved gem versions either way.
func parseGemfileLock(path string, result *bazbom.EcosystemScanResult) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reg := purl.NewRegistry()
	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		m := specLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, version := m[1], m[2]
		key := name + "@" + version
		if seen[key] {
			continue
		}
		seen[key] = true
		p, _ := reg.Generate(ecosystemName, "", name, version)
		result.Components = append(result.Components, bazbom.Component{
			Name:      name,
			Version:   version,
			Ecosystem: ecosystemName,
			PURL:      p,
			Location:  result.Root,
		})
	}
	return sc.Err()
}

// parseGemfile reads top-level `gem "name", "version"` declarations;
// gems with no explicit version are recorded with an empty version
// (no default constraint to resolve against).
func parseGemfile(path string, result *bazbom.EcosystemScanResult) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reg := purl.NewRegistry()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		m := gemfileDep.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name, version := m[1], ecosystem.StripRangePrefix(m[2])
		p, _ := reg.Generate(ecosystemName, "", name, version)
		result.Components = append(result.Components, bazbom.Component{
			Name:      name,
			Version:   version,
			Ecosystem: ecosystemName,
			PURL:      p,
			Location:  result.Root,
		})
	}
	return sc.Err()
}
