// Package composer parses PHP dependency manifests and lockfiles:
// composer.lock (resolved packages, JSON) and composer.json (direct
// requirements only).
package composer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/ecosystem"
	"github.com/bazbom/bazbom/purl"
)

const ecosystemName = "Composer"

// Scanner implements [ecosystem.Parser] for Composer.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner { return &Scanner{} }

// Name implements [ecosystem.Parser].
func (s *Scanner) Name() string { return ecosystemName }

// Detect implements [ecosystem.Parser].
func (s *Scanner) Detect(root string) bool {
	_, err := os.Stat(filepath.Join(root, "composer.json"))
	return err == nil
}

type composerLock struct {
	Packages    []composerPackage `json:"packages"`
	PackagesDev []composerPackage `json:"packages-dev"`
}

type composerPackage struct {
	Name    string            `json:"name"`
	Version string            `json:"version"`
	Require map[string]string `json:"require"`
}

type composerJSON struct {
	Require map[string]string `json:"require"`
}

// Scan implements [ecosystem.Parser].
func (s *Scanner) Scan(ctx context.Context, root string, cache *ecosystem.LicenseCache) (bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "ecosystem/composer/Scanner.Scan")
	result := bazbom.EcosystemScanResult{Ecosystem: ecosystemName, Root: root}

	lockPath := filepath.Join(root, "composer.lock")
	if b, err := os.ReadFile(lockPath); err == nil {
		if err := parseComposerLock(b, &result); err != nil {
			result.Warnings = append(result.Warnings, "composer.lock: "+err.Error())
		}
		zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
		return result, nil
	}

	b, err := os.ReadFile(filepath.Join(root, "composer.json"))
	if err != nil {
		result.Warnings = append(result.Warnings, "composer.json: "+err.Error())
		return result, nil
	}
	if err := parseComposerJSON(b, &result); err != nil {
		result.Warnings = append(result.Warnings, "composer.json: "+err.Error())
	}
	zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
	return result, nil
}

func parseComposerLock(b []byte, result *bazbom.EcosystemScanResult) error {
	var lock composerLock
	if err := json.Unmarshal(b, &lock); err != nil {
		return err
	}
	reg := purl.NewRegistry()
	for _, pkg := range append(lock.Packages, lock.PackagesDev...) {
		addComposerPackage(reg, pkg, result)
	}
	return nil
}

func addComposerPackage(reg *purl.Registry, pkg composerPackage, result *bazbom.EcosystemScanResult) {
	namespace, name := splitVendorPackage(pkg.Name)
	if name == "" || pkg.Version == "" {
		return
	}
	deps := make([]string, 0, len(pkg.Require))
	for d := range pkg.Require {
		if d == "php" || strings.HasPrefix(d, "ext-") {
			continue
		}
		deps = append(deps, d)
	}
	p, _ := reg.Generate(ecosystemName, namespace, name, pkg.Version)
	result.Components = append(result.Components, bazbom.Component{
		Name:       name,
		Version:    pkg.Version,
		Ecosystem:  ecosystemName,
		Namespace:  namespace,
		DirectDeps: deps,
		PURL:       p,
		Location:   result.Root,
	})
}

func parseComposerJSON(b []byte, result *bazbom.EcosystemScanResult) error {
	var manifest composerJSON
	if err := json.Unmarshal(b, &manifest); err != nil {
		return err
	}
	reg := purl.NewRegistry()
	for dep, spec := range manifest.Require {
		if dep == "php" || strings.HasPrefix(dep, "ext-") {
			continue
		}
		namespace, name := splitVendorPackage(dep)
		version := ecosystem.StripRangePrefix(spec)
		p, _ := reg.Generate(ecosystemName, namespace, name, version)
		result.Components = append(result.Components, bazbom.Component{
			Name:      name,
			Version:   version,
			Ecosystem: ecosystemName,
			Namespace: namespace,
			PURL:      p,
			Location:  result.Root,
		})
	}
	return nil
}

// splitVendorPackage splits a Composer "vendor/package" name into
// (vendor, package).
func splitVendorPackage(full string) (namespace, name string) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 {
		return "", full
	}
	return parts[0], parts[1]
}
