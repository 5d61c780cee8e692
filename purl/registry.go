// Package purl generates and parses Package URLs for bazbom's supported
// ecosystems.
package purl

import (
	"fmt"
	"sync"

	"github.com/package-url/packageurl-go"
)

// GenerateFunc produces a PackageURL for a component within one ecosystem.
type GenerateFunc func(namespace, name, version string) packageurl.PackageURL

// ErrUnPurlable is returned when no generator is registered for an
// ecosystem.
type ErrUnPurlable struct{ Ecosystem string }

func (e ErrUnPurlable) Error() string {
	return fmt.Sprintf("purl: no generator registered for ecosystem %q", e.Ecosystem)
}

// ErrUnknownPurl is returned when no parser is registered for a PURL type.
type ErrUnknownPurl struct{ Type string }

func (e ErrUnknownPurl) Error() string {
	return fmt.Sprintf("purl: no parser registered for type %q", e.Type)
}

// Registry is a thread-safe registry of PURL generators, keyed by
// bazbom ecosystem name (the same strings [Component.Ecosystem] carries:
// "npm", "PyPI", "Maven", "Gradle", "Bazel", "Go", "Cargo", "Ruby",
// "Composer").
type Registry struct {
	mu  sync.RWMutex
	gen map[string]GenerateFunc
}

// NewRegistry returns a Registry pre-populated with generators for every
// ecosystem this module's scanner orchestrator supports.
func NewRegistry() *Registry {
	r := &Registry{gen: make(map[string]GenerateFunc)}
	r.register("npm", genNPM)
	r.register("PyPI", genPyPI)
	r.register("Maven", genMaven)
	r.register("Gradle", genMaven)
	r.register("Bazel", genMaven)
	r.register("Go", genGolang)
	r.register("Cargo", genCargo)
	r.register("Ruby", genGem)
	r.register("Composer", genComposer)
	return r
}

func (r *Registry) register(ecosystem string, fn GenerateFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen[ecosystem] = fn
}

// Generate builds the PURL string for one component.
func (r *Registry) Generate(ecosystem, namespace, name, version string) (string, error) {
	r.mu.RLock()
	fn, ok := r.gen[ecosystem]
	r.mu.RUnlock()
	if !ok {
		return "", ErrUnPurlable{Ecosystem: ecosystem}
	}
	return fn(namespace, name, version).ToString(), nil
}

func genNPM(namespace, name, version string) packageurl.PackageURL {
	return packageurl.NewPackageURL(packageurl.TypeNPM, namespace, name, version, nil, "")
}

func genPyPI(_, name, version string) packageurl.PackageURL {
	return packageurl.NewPackageURL(packageurl.TypePyPi, "", name, version, nil, "")
}

func genMaven(namespace, name, version string) packageurl.PackageURL {
	return packageurl.NewPackageURL(packageurl.TypeMaven, namespace, name, version, nil, "")
}

func genGolang(namespace, name, version string) packageurl.PackageURL {
	return packageurl.NewPackageURL(packageurl.TypeGolang, namespace, name, version, nil, "")
}

func genCargo(_, name, version string) packageurl.PackageURL {
	return packageurl.NewPackageURL(packageurl.TypeCargo, "", name, version, nil, "")
}

func genGem(_, name, version string) packageurl.PackageURL {
	return packageurl.NewPackageURL(packageurl.TypeGem, "", name, version, nil, "")
}

func genComposer(namespace, name, version string) packageurl.PackageURL {
	return packageurl.NewPackageURL(packageurl.TypeComposer, namespace, name, version, nil, "")
}

// Parse decodes a PURL string into its (ecosystem, namespace, name,
// version) parts, mapping the PURL type back to a bazbom ecosystem name.
func Parse(s string) (ecosystem, namespace, name, version string, err error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return "", "", "", "", fmt.Errorf("purl: parse %q: %w", s, err)
	}
	eco, ok := typeToEcosystem[p.Type]
	if !ok {
		return "", "", "", "", ErrUnknownPurl{Type: p.Type}
	}
	return eco, p.Namespace, p.Name, p.Version, nil
}

var typeToEcosystem = map[string]string{
	packageurl.TypeNPM:      "npm",
	packageurl.TypePyPi:     "PyPI",
	packageurl.TypeMaven:    "Maven",
	packageurl.TypeGolang:   "Go",
	packageurl.TypeCargo:    "Cargo",
	packageurl.TypeGem:      "Ruby",
	packageurl.TypeComposer: "Composer",
}
