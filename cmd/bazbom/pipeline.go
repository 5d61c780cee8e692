package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/quay/zlog"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/advisory"
	"github.com/bazbom/bazbom/enrich"
	"github.com/bazbom/bazbom/match"
	"github.com/bazbom/bazbom/priority"
	"github.com/bazbom/bazbom/remediate"
)

// runPipeline drives components through C5-C9 (match, enrich, score,
// synthesize remediation) the same way for every command that produces
// a finding set — scan and container-scan alike. warnings accumulates
// any non-fatal per-feed/per-package failures, per spec §7's policy
// that no single bad advisory aborts the whole run.
func runPipeline(ctx context.Context, components []bazbom.Component, warnings *[]string) ([]bazbom.VulnerabilityMatch, []bazbom.RemediationSuggestion, error) {
	store, err := advisory.NewStore(cacheDir, http.DefaultClient)
	if err != nil {
		return nil, nil, fmt.Errorf("opening advisory store: %w", err)
	}
	if err := store.RefreshIfStale(ctx, time.Now()); err != nil {
		*warnings = append(*warnings, fmt.Sprintf("advisory refresh: %v", err))
	}

	matches, err := matchAgainstStore(ctx, components, store)
	if err != nil {
		return nil, nil, fmt.Errorf("matching vulnerabilities: %w", err)
	}

	matches = enrich.Enrich(ctx, store, matches, scanOSHint)
	for i := range matches {
		priority.Score(&matches[i])
	}

	var suggestions []bazbom.RemediationSuggestion
	for i := range matches {
		s := remediate.Synthesize(matches[i])
		if s == nil {
			matches[i].DifficultyScore = priority.DifficultyScore(&matches[i], false, false, 0)
			continue
		}
		breaking, jumps := remediate.Classify(matches[i].Component.Ecosystem, s.CurrentVersion, s.FixedVersion)
		matches[i].DifficultyScore = priority.DifficultyScore(&matches[i], true, breaking, jumps)
		suggestions = append(suggestions, *s)
	}

	return matches, suggestions, nil
}

// matchAgainstStore queries OSV for every distinct (ecosystem, package)
// pair in components, builds a matcher index (C5) from the results, and
// matches. A per-package query failure is a warning, not an abort, per
// spec §7's no-single-source-aborts-everything principle.
func matchAgainstStore(ctx context.Context, components []bazbom.Component, store *advisory.Store) ([]bazbom.VulnerabilityMatch, error) {
	type pkgKey struct{ ecosystem, name string }
	seen := make(map[pkgKey]bool)
	var advisories []bazbom.Vulnerability

	for _, c := range components {
		pkgName := c.PackageName()
		k := pkgKey{c.Ecosystem, pkgName}
		if seen[k] {
			continue
		}
		seen[k] = true

		vulns, err := store.QueryPackage(ctx, c.Ecosystem, pkgName, c.Version)
		if err != nil {
			zlog.Warn(ctx).Err(err).Str("ecosystem", c.Ecosystem).Str("package", pkgName).Msg("advisory query failed")
			continue
		}
		advisories = append(advisories, vulns...)
	}

	idx := match.BuildIndex(advisories)
	return match.Match(ctx, components, idx)
}
