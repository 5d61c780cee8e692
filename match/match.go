// Package match implements the vulnerability matcher (C5): it indexes
// advisories by (ecosystem, package) and, for every scanned component,
// evaluates every candidate advisory's version ranges to produce a
// deduplicated set of VulnerabilityMatch records.
package match

import (
	"context"
	"runtime"
	"sync"

	"github.com/quay/zlog"
	"golang.org/x/sync/errgroup"

	"github.com/bazbom/bazbom"
	bversion "github.com/bazbom/bazbom/version"
)

// indexKey is the (ecosystem, package) lookup key for the advisory
// index, per §4.5's algorithm.
type indexKey struct {
	ecosystem string
	pkg       string
}

// Index maps (ecosystem, package) to every advisory that declares an
// affected range for that pair.
type Index struct {
	byPackage map[indexKey][]bazbom.Vulnerability
}

// BuildIndex constructs an Index from a flat advisory list.
func BuildIndex(advisories []bazbom.Vulnerability) *Index {
	idx := &Index{byPackage: make(map[indexKey][]bazbom.Vulnerability)}
	for _, v := range advisories {
		for _, aff := range v.Affected {
			key := indexKey{ecosystem: aff.Ecosystem, pkg: aff.Package}
			idx.byPackage[key] = append(idx.byPackage[key], v)
		}
	}
	return idx
}

// Match runs the matcher over a component set against an advisory
// index, fanning work out across GOMAXPROCS workers since components
// are matched independently of one another (§5's "matches are produced
// in no particular order across components").
func Match(ctx context.Context, components []bazbom.Component, idx *Index) ([]bazbom.VulnerabilityMatch, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "match/Match")

	var mu sync.Mutex
	dedup := make(map[dedupKey]*bazbom.VulnerabilityMatch)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range components {
		c := components[i]
		g.Go(func() error {
			matches, err := matchOne(gctx, c, idx)
			if err != nil {
				return err
			}
			mu.Lock()
			for _, m := range matches {
				mergeMatch(dedup, m)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]bazbom.VulnerabilityMatch, 0, len(dedup))
	for _, m := range dedup {
		out = append(out, *m)
	}
	return out, nil
}

// dedupKey is §4.5's deduplication key: (canonical CVE ID, ecosystem,
// package).
type dedupKey struct {
	cve       string
	ecosystem string
	pkg       string
}

func canonicalID(v bazbom.Vulnerability) string {
	for _, a := range v.Aliases {
		if isCVE(a) {
			return a
		}
	}
	if isCVE(v.ID) {
		return v.ID
	}
	return v.ID
}

func isCVE(id string) bool {
	return len(id) > 4 && id[:4] == "CVE-"
}

// mergeMatch folds m into dedup, merging reference lists when two
// matches share a CVE but arrived via different advisory IDs (OSV/GHSA/
// distro alias), per §4.5.
func mergeMatch(dedup map[dedupKey]*bazbom.VulnerabilityMatch, m bazbom.VulnerabilityMatch) {
	key := dedupKey{
		cve:       canonicalID(m.Vulnerability),
		ecosystem: m.Component.Ecosystem,
		pkg:       m.Component.PackageName(),
	}
	existing, ok := dedup[key]
	if !ok {
		mCopy := m
		mCopy.Vulnerability.ID = key.cve
		dedup[key] = &mCopy
		return
	}
	existing.Vulnerability.References = mergeReferences(existing.Vulnerability.References, m.Vulnerability.References)
}

func mergeReferences(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, r := range append(append([]string{}, a...), b...) {
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// matchOne probes the index for one component and evaluates every
// candidate advisory's ranges via C1's IsAffected, applying
// conservative-include on a parse failure per §4.5 and §7.
func matchOne(ctx context.Context, c bazbom.Component, idx *Index) ([]bazbom.VulnerabilityMatch, error) {
	pkgName := c.PackageName()
	key := indexKey{ecosystem: c.Ecosystem, pkg: pkgName}
	candidates := idx.byPackage[key]
	if len(candidates) == 0 {
		return nil, nil
	}

	scheme := bversion.SchemeForEcosystem(c.Ecosystem)
	var out []bazbom.VulnerabilityMatch
	for _, v := range candidates {
		var affected bool
		for _, aff := range v.Affected {
			if aff.Ecosystem != c.Ecosystem || aff.Package != pkgName {
				continue
			}
			for _, r := range aff.Ranges {
				ok, err := bversion.IsAffected(scheme, c.Version, r)
				if err != nil {
					zlog.Debug(ctx).Err(err).
						Str("package", pkgName).
						Str("version", c.Version).
						Str("advisory", v.ID).
						Msg("version parse failure, conservative-include")
				}
				if ok {
					affected = true
					break
				}
			}
			if affected {
				break
			}
		}
		if affected {
			out = append(out, bazbom.VulnerabilityMatch{
				Vulnerability: v,
				Component:     c,
				Priority:      v.Priority,
				EPSS:          v.EPSS,
				KEV:           v.KEV,
			})
		}
	}
	return out, nil
}
