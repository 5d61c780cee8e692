// Package npm parses Node.js dependency manifests and lockfiles:
// package.json, package-lock.json (v6 and v7+ shapes), yarn.lock, and
// pnpm-lock.yaml.
package npm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/quay/zlog"
	"gopkg.in/yaml.v3"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/ecosystem"
	"github.com/bazbom/bazbom/purl"
)

const ecosystemName = "npm"

// Scanner implements [ecosystem.Parser] for the npm ecosystem.
//
// The zero value is ready to use.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner { return &Scanner{} }

// Name implements [ecosystem.Parser].
func (s *Scanner) Name() string { return ecosystemName }

// Detect implements [ecosystem.Parser].
func (s *Scanner) Detect(root string) bool {
	_, err := os.Stat(filepath.Join(root, "package.json"))
	return err == nil
}

// Scan implements [ecosystem.Parser]. Lockfiles, when present, take
// precedence over package.json's declared ranges per §4.3's source-of-
// truth ordering.
func (s *Scanner) Scan(ctx context.Context, root string, cache *ecosystem.LicenseCache) (bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "ecosystem/npm/Scanner.Scan")
	result := bazbom.EcosystemScanResult{Ecosystem: ecosystemName, Root: root}

	manifestPath := filepath.Join(root, "package.json")
	manifest, err := readPackageJSON(manifestPath)
	if err != nil {
		result.Warnings = append(result.Warnings, "package.json: "+err.Error())
		return result, nil
	}

	switch {
	case fileExists(filepath.Join(root, "package-lock.json")):
		if err := parsePackageLock(root, &result, cache); err != nil {
			result.Warnings = append(result.Warnings, "package-lock.json: "+err.Error())
			parsePackageJSONDeps(manifest, &result)
		}
	case fileExists(filepath.Join(root, "yarn.lock")):
		if err := parseYarnLock(root, &result, cache); err != nil {
			result.Warnings = append(result.Warnings, "yarn.lock: "+err.Error())
			parsePackageJSONDeps(manifest, &result)
		}
	case fileExists(filepath.Join(root, "pnpm-lock.yaml")):
		if err := parsePnpmLock(root, &result, cache); err != nil {
			result.Warnings = append(result.Warnings, "pnpm-lock.yaml: "+err.Error())
			parsePackageJSONDeps(manifest, &result)
		}
	default:
		parsePackageJSONDeps(manifest, &result)
	}

	zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
	return result, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

type packageJSON struct {
	Dependencies json.RawMessage `json:"dependencies"`
	License      json.RawMessage `json:"license"`
}

func readPackageJSON(path string) (packageJSON, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return packageJSON{}, err
	}
	var pj packageJSON
	if err := json.Unmarshal(b, &pj); err != nil {
		return packageJSON{}, err
	}
	return pj, nil
}

// splitScoped splits a package name like "@babel/code-frame" into
// ("@babel", "code-frame"), or ("", name) for unscoped packages.
func splitScoped(name string) (namespace, pkg string) {
	if !strings.HasPrefix(name, "@") {
		return "", name
	}
	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 {
		return "", name
	}
	return parts[0], parts[1]
}

func addComponent(result *bazbom.EcosystemScanResult, root, name, version string, deps []string, cache *ecosystem.LicenseCache) {
	namespace, pkg := splitScoped(name)
	reg := purl.NewRegistry()
	p, _ := reg.Generate(ecosystemName, namespace, pkg, version)

	license, ok := cache.Get(ecosystemName, namespace, pkg, version)
	if !ok {
		license = licenseFromNodeModules(root, namespace, pkg)
		cache.Put(ecosystemName, namespace, pkg, version, license)
	}

	result.Components = append(result.Components, bazbom.Component{
		Name:       pkg,
		Version:    version,
		Ecosystem:  ecosystemName,
		Namespace:  namespace,
		DirectDeps: deps,
		PURL:       p,
		Location:   root,
		License:    license,
	})
}

// licenseFromNodeModules reads node_modules/{namespace/}{name}/package.json
// for a "license" field, handling both the string and {"type": "..."}
// object shapes.
func licenseFromNodeModules(root, namespace, name string) string {
	var pkgDir string
	if namespace != "" {
		pkgDir = filepath.Join(root, "node_modules", namespace, name)
	} else {
		pkgDir = filepath.Join(root, "node_modules", name)
	}
	b, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return ""
	}
	var pj packageJSON
	if err := json.Unmarshal(b, &pj); err != nil {
		return ""
	}
	return extractLicenseString(pj.License)
}

func extractLicenseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Type
	}
	return ""
}

// parsePackageJSONDeps is the manifest-only fallback: no lockfile, so only
// direct dependencies are known, and versions are stripped of range
// prefixes per §4.3 rule 1.
func parsePackageJSONDeps(pj packageJSON, result *bazbom.EcosystemScanResult) {
	deps := rawStringMap(pj.Dependencies)
	for name, spec := range deps {
		namespace, pkg := splitScoped(name)
		version := ecosystem.StripRangePrefix(spec)
		reg := purl.NewRegistry()
		p, _ := reg.Generate(ecosystemName, namespace, pkg, version)
		result.Components = append(result.Components, bazbom.Component{
			Name:      pkg,
			Version:   version,
			Ecosystem: ecosystemName,
			Namespace: namespace,
			PURL:      p,
			Location:  result.Root,
		})
	}
}

func rawStringMap(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// --- package-lock.json (npm v6 and v7+) ---

type packageLockJSON struct {
	Packages     map[string]lockfilePackage    `json:"packages"`
	Dependencies map[string]lockfileDependency `json:"dependencies"`
}

type lockfilePackage struct {
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

type lockfileDependency struct {
	Version      string                         `json:"version"`
	Requires     map[string]string              `json:"requires"`
	Dependencies map[string]lockfileDependency `json:"dependencies"`
}

func parsePackageLock(root string, result *bazbom.EcosystemScanResult, cache *ecosystem.LicenseCache) error {
	b, err := os.ReadFile(filepath.Join(root, "package-lock.json"))
	if err != nil {
		return err
	}
	var lock packageLockJSON
	if err := json.Unmarshal(b, &lock); err != nil {
		return err
	}

	if len(lock.Packages) > 0 {
		for path, pkg := range lock.Packages {
			if path == "" || pkg.Version == "" {
				continue
			}
			name := strings.TrimPrefix(path, "node_modules/")
			deps := make([]string, 0, len(pkg.Dependencies))
			for d := range pkg.Dependencies {
				deps = append(deps, d)
			}
			addComponent(result, root, name, pkg.Version, deps, cache)
		}
		return nil
	}
	if len(lock.Dependencies) > 0 {
		visited := make(map[string]bool)
		parseV6Dependencies(lock.Dependencies, root, result, cache, visited)
	}
	return nil
}

// parseV6Dependencies recurses through npm v6's nested "dependencies" tree,
// tracking a visited set to avoid infinite recursion on cyclic graphs per
// §4.3 rule 3.
func parseV6Dependencies(deps map[string]lockfileDependency, root string, result *bazbom.EcosystemScanResult, cache *ecosystem.LicenseCache, visited map[string]bool) {
	for name, dep := range deps {
		if visited[name] {
			continue
		}
		direct := make([]string, 0, len(dep.Requires))
		for d := range dep.Requires {
			direct = append(direct, d)
		}
		addComponent(result, root, name, dep.Version, direct, cache)

		if len(dep.Dependencies) > 0 {
			visited[name] = true
			parseV6Dependencies(dep.Dependencies, root, result, cache, visited)
			visited[name] = false
		}
	}
}

// --- yarn.lock: a line-oriented state machine, since yarn.lock is not
// valid YAML. ---

func parseYarnLock(root string, result *bazbom.EcosystemScanResult, cache *ecosystem.LicenseCache) error {
	b, err := os.ReadFile(filepath.Join(root, "yarn.lock"))
	if err != nil {
		return err
	}

	var currentName, currentVersion string
	var currentDeps []string
	inDeps := false

	flush := func() {
		if currentName != "" && currentVersion != "" {
			addComponent(result, root, currentName, currentVersion, currentDeps, cache)
		}
		currentDeps = nil
	}

	for _, line := range strings.Split(string(b), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		switch {
		case !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") && strings.HasSuffix(trimmed, ":"):
			flush()
			currentName, currentVersion = "", ""
			inDeps = false

			spec := strings.TrimSuffix(trimmed, ":")
			first := strings.TrimSpace(strings.SplitN(spec, ",", 2)[0])
			first = strings.Trim(first, `"`)
			currentName = yarnPackageName(first)
		case strings.HasPrefix(trimmed, "version "):
			if v, ok := extractQuotedValue(trimmed); ok {
				currentVersion = v
			}
		case trimmed == "dependencies:":
			inDeps = true
		case inDeps && (strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t\t")):
			if dep, ok := extractDependencyName(trimmed); ok {
				currentDeps = append(currentDeps, dep)
			}
		default:
			if inDeps && !strings.HasPrefix(line, "    ") && !strings.HasPrefix(line, "\t\t") {
				inDeps = false
			}
		}
	}
	flush()
	return nil
}

// yarnPackageName extracts the package name from a spec like
// "@babel/code-frame@^7.0.0" or "express@^4.18.0", splitting scoped names
// on their second '@'.
func yarnPackageName(spec string) string {
	if strings.HasPrefix(spec, "@") {
		rest := spec[1:]
		if i := strings.Index(rest, "@"); i >= 0 {
			return spec[:i+1]
		}
		return spec
	}
	if i := strings.LastIndex(spec, "@"); i > 0 {
		return spec[:i]
	}
	return spec
}

func extractQuotedValue(line string) (string, bool) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	v := strings.TrimSpace(parts[1])
	if strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) && len(v) >= 2 {
		return v[1 : len(v)-1], true
	}
	return "", false
}

func extractDependencyName(line string) (string, bool) {
	first := strings.Index(line, `"`)
	if first < 0 {
		return "", false
	}
	rest := line[first+1:]
	second := strings.Index(rest, `"`)
	if second < 0 {
		return "", false
	}
	return rest[:second], true
}

// --- pnpm-lock.yaml ---

type pnpmLockfile struct {
	Packages map[string]pnpmPackage `yaml:"packages"`
}

type pnpmPackage struct {
	Dependencies map[string]string `yaml:"dependencies"`
}

func parsePnpmLock(root string, result *bazbom.EcosystemScanResult, cache *ecosystem.LicenseCache) error {
	b, err := os.ReadFile(filepath.Join(root, "pnpm-lock.yaml"))
	if err != nil {
		return err
	}
	var lock pnpmLockfile
	if err := yaml.Unmarshal(b, &lock); err != nil {
		return err
	}

	for path, pkg := range lock.Packages {
		name, version, ok := parsePnpmPackagePath(path)
		if !ok {
			continue
		}
		deps := make([]string, 0, len(pkg.Dependencies))
		for d := range pkg.Dependencies {
			deps = append(deps, d)
		}
		addComponent(result, root, name, version, deps, cache)
	}
	return nil
}

// parsePnpmPackagePath parses a pnpm packages-section key like
// "/@babel/code-frame@7.18.6" or "/express@4.18.2", including the v6
// trailing-colon form and parenthesized peer-dep variants
// ("7.18.6(patch_hash=...)").
func parsePnpmPackagePath(path string) (name, version string, ok bool) {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, ":")

	if strings.HasPrefix(path, "@") {
		lastAt := strings.LastIndex(path, "@")
		if lastAt <= 0 {
			return "", "", false
		}
		name = path[:lastAt]
		version = path[lastAt+1:]
	} else {
		at := strings.Index(path, "@")
		if at < 0 {
			return "", "", false
		}
		name = path[:at]
		version = path[at+1:]
	}
	if i := strings.Index(version, "("); i >= 0 {
		version = version[:i]
	}
	return name, version, true
}
