// Package pypi parses Python dependency manifests and lockfiles:
// poetry.lock, Pipfile.lock, requirements-lock.txt, requirements.txt,
// pyproject.toml, and Pipfile (detected but not locked).
package pypi

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/ecosystem"
	"github.com/bazbom/bazbom/purl"
)

const ecosystemName = "PyPI"

// operatorPrecedence is the requirement-operator probe order, most
// specific first, so "===" isn't mistaken for "==" and so on.
var operatorPrecedence = []string{"===", "==", "~=", ">=", "<=", ">", "<", "!="}

// Scanner implements [ecosystem.Parser] for PyPI.
type Scanner struct{}

// New returns a ready-to-use Scanner.
func New() *Scanner { return &Scanner{} }

// Name implements [ecosystem.Parser].
func (s *Scanner) Name() string { return ecosystemName }

// Detect implements [ecosystem.Parser].
func (s *Scanner) Detect(root string) bool {
	for _, marker := range []string{"requirements.txt", "pyproject.toml", "Pipfile", "poetry.lock", "Pipfile.lock"} {
		if fileExists(filepath.Join(root, marker)) {
			return true
		}
	}
	return false
}

// Scan implements [ecosystem.Parser]. Lockfiles (poetry.lock, Pipfile.lock,
// requirements-lock.txt) are preferred over manifests when both exist,
// per §4.3's source-of-truth ordering.
func (s *Scanner) Scan(ctx context.Context, root string, cache *ecosystem.LicenseCache) (bazbom.EcosystemScanResult, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "ecosystem/pypi/Scanner.Scan")
	result := bazbom.EcosystemScanResult{Ecosystem: ecosystemName, Root: root}

	switch {
	case fileExists(filepath.Join(root, "poetry.lock")):
		if err := parsePoetryLock(root, &result, cache); err != nil {
			result.Warnings = append(result.Warnings, "poetry.lock: "+err.Error())
		}
	case fileExists(filepath.Join(root, "Pipfile.lock")):
		if err := parsePipfileLock(root, &result, cache); err != nil {
			result.Warnings = append(result.Warnings, "Pipfile.lock: "+err.Error())
		}
	case fileExists(filepath.Join(root, "requirements-lock.txt")):
		if err := parseRequirementsFile(filepath.Join(root, "requirements-lock.txt"), &result, cache); err != nil {
			result.Warnings = append(result.Warnings, "requirements-lock.txt: "+err.Error())
		}
	case fileExists(filepath.Join(root, "requirements.txt")):
		if err := parseRequirementsFile(filepath.Join(root, "requirements.txt"), &result, cache); err != nil {
			result.Warnings = append(result.Warnings, "requirements.txt: "+err.Error())
		}
	case fileExists(filepath.Join(root, "pyproject.toml")):
		if err := parsePyprojectToml(filepath.Join(root, "pyproject.toml"), &result); err != nil {
			result.Warnings = append(result.Warnings, "pyproject.toml: "+err.Error())
		}
	case fileExists(filepath.Join(root, "Pipfile")):
		result.Warnings = append(result.Warnings, "Pipfile found but no Pipfile.lock: run `pipenv lock` for accurate versions")
	}

	zlog.Debug(ctx).Int("components", len(result.Components)).Msg("scan complete")
	return result, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func addComponent(result *bazbom.EcosystemScanResult, name, version string, deps []string, license string) {
	reg := purl.NewRegistry()
	p, _ := reg.Generate(ecosystemName, "", name, version)
	result.Components = append(result.Components, bazbom.Component{
		Name:       name,
		Version:    version,
		Ecosystem:  ecosystemName,
		DirectDeps: deps,
		PURL:       p,
		Location:   result.Root,
		License:    license,
	})
}

// licenseFromMetadata reads a METADATA/PKG-INFO "License:" field from a
// virtualenv's site-packages, when one is present at root.
func licenseFromMetadata(root, name string) string {
	normalized := strings.ReplaceAll(name, "-", "_")
	for _, venvDir := range []string{"venv/lib", ".venv/lib"} {
		base := filepath.Join(root, venvDir)
		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || !strings.HasPrefix(e.Name(), "python") {
				continue
			}
			sitePkgs := filepath.Join(base, e.Name(), "site-packages")
			distInfos, err := os.ReadDir(sitePkgs)
			if err != nil {
				continue
			}
			for _, d := range distInfos {
				dn := d.Name()
				if !strings.HasPrefix(dn, normalized) || !strings.HasSuffix(dn, ".dist-info") {
					continue
				}
				content, err := os.ReadFile(filepath.Join(sitePkgs, dn, "METADATA"))
				if err != nil {
					continue
				}
				for _, line := range strings.Split(string(content), "\n") {
					if lic, ok := strings.CutPrefix(line, "License:"); ok {
						lic = strings.TrimSpace(lic)
						if lic != "" && lic != "UNKNOWN" {
							return lic
						}
					}
				}
			}
		}
	}
	return ""
}

// parseRequirementLine splits a requirements.txt/PEP 508 line into
// (name, version), stripping a trailing environment marker (after ';'),
// an inline comment (after '#'), and version extras ("[...]"), and
// probing operators in order of specificity per the documented table.
func parseRequirementLine(line string) (name, version string, ok bool) {
	if i := strings.Index(line, ";"); i >= 0 {
		line = line[:i]
	}
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}

	for _, op := range operatorPrecedence {
		idx := strings.Index(line, op)
		if idx < 0 {
			continue
		}
		n := strings.TrimSpace(line[:idx])
		v := strings.TrimSpace(line[idx+len(op):])
		if bracket := strings.Index(v, "["); bracket >= 0 {
			v = strings.TrimSpace(v[:bracket])
		}
		if comma := strings.Index(v, ","); comma >= 0 {
			v = strings.TrimSpace(v[:comma])
		}
		if n != "" && v != "" {
			return n, v, true
		}
	}
	return "", "", false
}

func parseRequirementsFile(path string, result *bazbom.EcosystemScanResult, cache *ecosystem.LicenseCache) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "-e") || strings.HasPrefix(line, "-r") || strings.HasPrefix(line, "--") {
			continue
		}
		name, version, ok := parseRequirementLine(line)
		if !ok {
			continue
		}
		license, cached := cache.Get(ecosystemName, "", name, version)
		if !cached {
			license = licenseFromMetadata(result.Root, name)
			cache.Put(ecosystemName, "", name, version, license)
		}
		addComponent(result, name, version, nil, license)
	}
	return nil
}

// --- poetry.lock (TOML) ---

type poetryLock struct {
	Package []poetryPackage `toml:"package"`
}

type poetryPackage struct {
	Name         string            `toml:"name"`
	Version      string            `toml:"version"`
	Dependencies map[string]any    `toml:"dependencies"`
}

func parsePoetryLock(root string, result *bazbom.EcosystemScanResult, cache *ecosystem.LicenseCache) error {
	b, err := os.ReadFile(filepath.Join(root, "poetry.lock"))
	if err != nil {
		return err
	}
	var lock poetryLock
	if err := toml.Unmarshal(b, &lock); err != nil {
		return err
	}
	for _, pkg := range lock.Package {
		deps := make([]string, 0, len(pkg.Dependencies))
		for d := range pkg.Dependencies {
			deps = append(deps, d)
		}
		license, cached := cache.Get(ecosystemName, "", pkg.Name, pkg.Version)
		if !cached {
			license = licenseFromMetadata(root, pkg.Name)
			cache.Put(ecosystemName, "", pkg.Name, pkg.Version, license)
		}
		addComponent(result, pkg.Name, pkg.Version, deps, license)
	}
	return nil
}

// --- Pipfile.lock (JSON) ---

type pipfileLock struct {
	Default map[string]pipfileDependency `json:"default"`
	Develop map[string]pipfileDependency `json:"develop"`
}

type pipfileDependency struct {
	Version string `json:"version"`
}

func parsePipfileLock(root string, result *bazbom.EcosystemScanResult, cache *ecosystem.LicenseCache) error {
	b, err := os.ReadFile(filepath.Join(root, "Pipfile.lock"))
	if err != nil {
		return err
	}
	var lock pipfileLock
	if err := json.Unmarshal(b, &lock); err != nil {
		return err
	}
	for _, deps := range []map[string]pipfileDependency{lock.Default, lock.Develop} {
		for name, dep := range deps {
			version := strings.TrimPrefix(dep.Version, "==")
			license, cached := cache.Get(ecosystemName, "", name, version)
			if !cached {
				license = licenseFromMetadata(root, name)
				cache.Put(ecosystemName, "", name, version, license)
			}
			addComponent(result, name, version, nil, license)
		}
	}
	return nil
}

// --- pyproject.toml (PEP 621 and Poetry formats) ---

type pyprojectToml struct {
	Project *pep621Project `toml:"project"`
	Tool    *pyprojectTool `toml:"tool"`
}

type pep621Project struct {
	Dependencies         []string            `toml:"dependencies"`
	OptionalDependencies map[string][]string `toml:"optional-dependencies"`
}

type pyprojectTool struct {
	Poetry *poetryConfig `toml:"poetry"`
}

type poetryConfig struct {
	Dependencies    map[string]any `toml:"dependencies"`
	DevDependencies map[string]any `toml:"dev-dependencies"`
}

func parsePyprojectToml(path string, result *bazbom.EcosystemScanResult) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var doc pyprojectToml
	if err := toml.Unmarshal(b, &doc); err != nil {
		return err
	}

	if doc.Project != nil {
		for _, spec := range doc.Project.Dependencies {
			if name, version, ok := parseDependencySpec(spec); ok {
				addComponent(result, name, version, nil, "")
			}
		}
		for _, specs := range doc.Project.OptionalDependencies {
			for _, spec := range specs {
				if name, version, ok := parseDependencySpec(spec); ok {
					addComponent(result, name, version, nil, "")
				}
			}
		}
	}

	if doc.Tool != nil && doc.Tool.Poetry != nil {
		addPoetryDeps(doc.Tool.Poetry.Dependencies, result)
		addPoetryDeps(doc.Tool.Poetry.DevDependencies, result)
	}
	return nil
}

func addPoetryDeps(deps map[string]any, result *bazbom.EcosystemScanResult) {
	for name, spec := range deps {
		if name == "python" {
			continue
		}
		var version string
		switch v := spec.(type) {
		case string:
			version = extractPoetryVersion(v)
		case map[string]any:
			if raw, ok := v["version"].(string); ok {
				version = extractPoetryVersion(raw)
			} else {
				version = "latest"
			}
		default:
			version = "latest"
		}
		addComponent(result, name, version, nil, "")
	}
}

// parseDependencySpec parses a PEP 508 specifier like "protobuf>=5" into
// (name, version); a bare package name with no operator yields "latest".
func parseDependencySpec(spec string) (name, version string, ok bool) {
	if i := strings.Index(spec, ";"); i >= 0 {
		spec = spec[:i]
	}
	spec = strings.TrimSpace(spec)

	for _, op := range operatorPrecedence {
		idx := strings.Index(spec, op)
		if idx < 0 {
			continue
		}
		n := strings.TrimSpace(spec[:idx])
		v := strings.TrimSpace(spec[idx+len(op):])
		if bracket := strings.Index(v, "["); bracket >= 0 {
			v = strings.TrimSpace(v[:bracket])
		}
		if comma := strings.Index(v, ","); comma >= 0 {
			v = strings.TrimSpace(v[:comma])
		}
		if n != "" && v != "" {
			return n, v, true
		}
	}
	if spec != "" && !strings.ContainsAny(spec, " \t[") {
		return spec, "latest", true
	}
	return "", "", false
}

// extractPoetryVersion strips Poetry's caret/tilde operators, or a bare
// comparison operator, from a version specifier.
func extractPoetryVersion(spec string) string {
	spec = strings.TrimSpace(spec)
	if rest, ok := strings.CutPrefix(spec, "^"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(spec, "~"); ok {
		return rest
	}
	for _, op := range []string{"===", "==", ">=", "<=", ">", "<", "!="} {
		if idx := strings.Index(spec, op); idx >= 0 {
			v := strings.TrimSpace(spec[idx+len(op):])
			if comma := strings.Index(v, ","); comma >= 0 {
				v = strings.TrimSpace(v[:comma])
			}
			if v != "" {
				return v
			}
		}
	}
	return spec
}
