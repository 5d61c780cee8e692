// Package cargo parses Rust dependency manifests and lockfiles:
// Cargo.lock (TOML, the resolved dependency graph) and Cargo.toml
// (direct requirements only).
package cargo

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/ecosystem"
	"github.com/bazbom/bazbom/purl"
)

const ecosystemName = "Cargo"

// Scanner implements [ecosystem.Parser] for Cargo.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner { return &Scanner{} }

// Name implements [ecosystem.Parser].
func (s *Scanner) Name() string { return ecosystemName }

// Detect implements [ecosystem.Parser].
func (s *Scanner) Detect(root string) bool {
	_, err := os.Stat(filepath.Join(root, "Cargo.toml"))
	return err == nil
}

type cargoLock struct {
	Package []cargoLockPackage `toml:"package"`
}

type cargoLockPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Dependencies []string `toml:"dependencies"`
}

type cargoManifest struct {
	Dependencies map[string]any `toml:"dependencies"`
}

// Scan implements [ecosystem.Parser].
func (s *Scanner) Scan(ctx context.Context, root string, cache *ecosystem.LicenseCache) (bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "ecosystem/cargo/Scanner.Scan")
	result := bazbom.EcosystemScanResult{Ecosystem: ecosystemName, Root: root}

	lockPath := filepath.Join(root, "Cargo.lock")
	if b, err := os.ReadFile(lockPath); err == nil {
		if err := parseCargoLock(b, &result); err != nil {
			result.Warnings = append(result.Warnings, "Cargo.lock: "+err.Error())
		}
		zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
		return result, nil
	}

	b, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		result.Warnings = append(result.Warnings, "Cargo.toml: "+err.Error())
		return result, nil
	}
	if err := parseCargoToml(b, &result); err != nil {
		result.Warnings = append(result.Warnings, "Cargo.toml: "+err.Error())
	}

	zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
	return result, nil
}

// parseCargoLock reads Cargo.lock's [[package]] table. Dependency
// entries there are "name version" or just "name" (when unambiguous
// within the graph); only the name is kept for the edge, matching how
// the other lockfile parsers in this package record direct-dep names.
func parseCargoLock(b []byte, result *bazbom.EcosystemScanResult) error {
	var lock cargoLock
	if err := toml.Unmarshal(b, &lock); err != nil {
		return err
	}
	reg := purl.NewRegistry()
	for _, pkg := range lock.Package {
		if pkg.Name == "" || pkg.Version == "" {
			continue
		}
		deps := make([]string, 0, len(pkg.Dependencies))
		for _, d := range pkg.Dependencies {
			deps = append(deps, strings.Fields(d)[0])
		}
		p, _ := reg.Generate(ecosystemName, "", pkg.Name, pkg.Version)
		result.Components = append(result.Components, bazbom.Component{
			Name:       pkg.Name,
			Version:    pkg.Version,
			Ecosystem:  ecosystemName,
			DirectDeps: deps,
			PURL:       p,
			Location:   result.Root,
		})
	}
	return nil
}

// parseCargoToml reads the [dependencies] table of a manifest-only
// project, stripping version-range prefixes per §4.3 rule 1.
func parseCargoToml(b []byte, result *bazbom.EcosystemScanResult) error {
	var manifest cargoManifest
	if err := toml.Unmarshal(b, &manifest); err != nil {
		return err
	}
	reg := purl.NewRegistry()
	for name, spec := range manifest.Dependencies {
		var version string
		switch v := spec.(type) {
		case string:
			version = ecosystem.StripRangePrefix(v)
		case map[string]any:
			if raw, ok := v["version"].(string); ok {
				version = ecosystem.StripRangePrefix(raw)
			}
		}
		if version == "" {
			continue
		}
		p, _ := reg.Generate(ecosystemName, "", name, version)
		result.Components = append(result.Components, bazbom.Component{
			Name:      name,
			Version:   version,
			Ecosystem: ecosystemName,
			PURL:      p,
			Location:  result.Root,
		})
	}
	return nil
}
