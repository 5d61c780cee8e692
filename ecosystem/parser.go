// Package ecosystem defines the parser contract every per-ecosystem
// package implements (npm, pypi, maven, gradle, bazel, gomod, cargo,
// rubygems, composer) and the shared license cache threaded across them.
package ecosystem

import (
	"context"
	"sync"

	"github.com/bazbom/bazbom"
)

// Parser extracts (name, version, deps) from one ecosystem's manifests
// and lockfiles under a root directory.
type Parser interface {
	// Name identifies the ecosystem, e.g. "npm", "PyPI", "Maven".
	Name() string
	// Detect reports whether this parser's marker files are present at root.
	Detect(root string) bool
	// Scan walks root and returns every Component this parser can resolve.
	Scan(ctx context.Context, root string, cache *LicenseCache) (bazbom.EcosystemScanResult, error)
}

// LicenseCache is a read-write cache of resolved license identifiers keyed
// by (ecosystem, namespace, name, version), shared read-write across
// parsers within one scan so redundant on-disk/registry license lookups
// aren't repeated per §4.4.
type LicenseCache struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewLicenseCache returns an empty, ready-to-use cache.
func NewLicenseCache() *LicenseCache {
	return &LicenseCache{data: make(map[string]string)}
}

func licenseCacheKey(ecosystem, namespace, name, version string) string {
	return ecosystem + "\x00" + namespace + "\x00" + name + "\x00" + version
}

// Get returns a previously cached license, if any.
func (c *LicenseCache) Get(ecosystem, namespace, name, version string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[licenseCacheKey(ecosystem, namespace, name, version)]
	return v, ok
}

// Put stores a resolved license for later reuse.
func (c *LicenseCache) Put(ecosystem, namespace, name, version, license string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[licenseCacheKey(ecosystem, namespace, name, version)] = license
}

// StripRangePrefix removes common range-operator prefixes from a bare
// version specifier, per §4.3 rule 1 ("direct-only with a version
// specifier stripped of range prefixes").
func StripRangePrefix(spec string) string {
	spec = trimAny(spec, "^~=")
	return spec
}

func trimAny(s, cutset string) string {
	for len(s) > 0 && containsByte(cutset, s[0]) {
		s = s[1:]
	}
	return s
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
