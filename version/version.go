// Package version is the C1 version-algebra dispatcher: it parses
// ecosystem-native version strings into the normalized [bazbom.Version]
// key and evaluates [bazbom.VersionRange] affected-ness against it.
//
// The normalized type lives in the root bazbom package so that this
// package can import both it and every per-ecosystem comparator without
// creating an import cycle (the comparators never need to know about
// ranges or components).
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/knqyf263/go-apk-version"
	debver "github.com/knqyf263/go-deb-version"
	rpmver "github.com/knqyf263/go-rpm-version"
	"github.com/quay/claircore/pkg/pep440"
	rubygems "github.com/quay/claircore/ruby"

	"github.com/bazbom/bazbom"
	"github.com/bazbom/bazbom/version/maven"
)

// Scheme names the per-ecosystem comparator a [bazbom.Component]'s
// ecosystem maps to.
type Scheme string

const (
	SchemeSemver   Scheme = "semver"
	SchemeMaven    Scheme = "maven"
	SchemePEP440   Scheme = "pep440"
	SchemeRubyGems Scheme = "rubygems"
	SchemeDebian   Scheme = "debian"
	SchemeRPM      Scheme = "rpm"
	SchemeAlpine   Scheme = "alpine"
	SchemeEcosystem Scheme = "ecosystem" // opaque string equality
	SchemeGit      Scheme = "git"        // commit-graph ancestry; Compare does not order it
)

// SchemeForEcosystem maps a [bazbom.Component.Ecosystem] string to the
// comparator it uses, per spec §4.1.
func SchemeForEcosystem(ecosystem string) Scheme {
	switch ecosystem {
	case "npm", "Cargo", "Go":
		return SchemeSemver
	case "Maven", "Gradle", "Bazel":
		return SchemeMaven
	case "PyPI":
		return SchemePEP440
	case "Ruby":
		return SchemeRubyGems
	default:
		return SchemeEcosystem
	}
}

// Parse normalizes a version string under the given scheme.
func Parse(scheme Scheme, s string) (bazbom.Version, error) {
	switch scheme {
	case SchemeSemver:
		sv, err := semver.NewVersion(s)
		if err != nil {
			return bazbom.Version{}, fmt.Errorf("version: parse semver %q: %w", s, err)
		}
		return bazbom.FromSemver(sv), nil
	case SchemeMaven:
		mv, err := maven.ParseVersion(s)
		if err != nil {
			return bazbom.Version{}, fmt.Errorf("version: parse maven %q: %w", s, err)
		}
		return mavenToNormalized(mv), nil
	case SchemePEP440:
		pv, err := pep440.Parse(s)
		if err != nil {
			return bazbom.Version{}, fmt.Errorf("version: parse pep440 %q: %w", s, err)
		}
		return pep440ToNormalized(&pv), nil
	case SchemeRubyGems:
		rv, err := rubygems.NewVersion(s)
		if err != nil {
			return bazbom.Version{}, fmt.Errorf("version: parse rubygems %q: %w", s, err)
		}
		return rubyToNormalized(rv), nil
	case SchemeDebian:
		if _, err := debver.NewVersion(s); err != nil {
			return bazbom.Version{}, fmt.Errorf("version: parse debian %q: %w", s, err)
		}
		return bazbom.Version{Kind: "debian"}, nil
	case SchemeRPM:
		_ = rpmver.NewVersion(s)
		return bazbom.Version{Kind: "rpm"}, nil
	case SchemeAlpine:
		if _, err := apkversion.NewVersion(s); err != nil {
			return bazbom.Version{}, fmt.Errorf("version: parse alpine %q: %w", s, err)
		}
		return bazbom.Version{Kind: "alpine"}, nil
	case SchemeEcosystem, SchemeGit:
		return bazbom.Version{Kind: string(scheme)}, nil
	default:
		return bazbom.Version{}, fmt.Errorf("version: unknown scheme %q", scheme)
	}
}

// mavenToNormalized discards maven's qualifier ordering: Maven's token
// sequence doesn't reduce to a fixed-width numeric vector the way semver
// and PEP 440 do. Callers that need real maven ordering must use Compare,
// which dispatches to maven.Version.Compare directly.
func mavenToNormalized(v *maven.Version) bazbom.Version {
	return bazbom.Version{Kind: "maven"}
}

// rubyToNormalized is the rubygems analog of mavenToNormalized, for the
// same reason: rubygems segments mix numeric and string tokens that don't
// fit a fixed int32 vector.
func rubyToNormalized(v rubygems.Version) bazbom.Version {
	return bazbom.Version{Kind: "rubygems"}
}

// pep440ToNormalized packs a PEP 440 version into the fixed-width
// [bazbom.Version] vector, the same way [bazbom.FromSemver] does for
// semver. Release is normalized to five numbers (missing ones are zero,
// extras dropped); the pre-release label folds to a sign so an unreleased
// pre-release always sorts before the corresponding release, and a dev
// release sorts earlier still.
func pep440ToNormalized(v *pep440.Version) bazbom.Version {
	const (
		epoch = 0
		rel   = 1
		preL  = 6
		preN  = 7
		post  = 8
		dev   = 9
	)
	var c bazbom.Version
	c.Kind = "pep440"
	c.V[epoch] = int32(v.Epoch)
	for i, n := range v.Release {
		if i > 4 {
			break
		}
		c.V[rel+i] = int32(n)
	}
	switch v.Pre.Label {
	case "a":
		c.V[preL] = -3
	case "b":
		c.V[preL] = -2
	case "rc":
		c.V[preL] = -1
	}
	c.V[preN] = int32(v.Pre.N)
	c.V[post] = int32(v.Post)
	if v.Dev != 0 {
		if v.Post != 0 || c.V[preL] != 0 {
			c.V[dev] = -int32(v.Dev)
		} else {
			const minInt = -int32((^uint32(0))>>1) - 1
			c.V[preL] = minInt + int32(v.Dev)
		}
	}
	return c
}

// Compare orders two version strings parsed under the same scheme. Every
// scheme is ordered by its native comparator directly rather than through
// [bazbom.Version.Compare], which would lose ordering information the
// normalization above discards (for maven and rubygems, all of it).
// SchemeEcosystem strings compare equal only when identical and are
// otherwise reported as unorderable; SchemeGit is not ordered and returns
// an error.
func Compare(scheme Scheme, a, b string) (int, error) {
	switch scheme {
	case SchemeMaven:
		av, err := maven.ParseVersion(a)
		if err != nil {
			return 0, err
		}
		bv, err := maven.ParseVersion(b)
		if err != nil {
			return 0, err
		}
		return av.Compare(bv), nil
	case SchemePEP440:
		av, err := pep440.Parse(a)
		if err != nil {
			return 0, err
		}
		bv, err := pep440.Parse(b)
		if err != nil {
			return 0, err
		}
		return av.Compare(&bv), nil
	case SchemeRubyGems:
		av, err := rubygems.NewVersion(a)
		if err != nil {
			return 0, err
		}
		bv, err := rubygems.NewVersion(b)
		if err != nil {
			return 0, err
		}
		return av.Compare(bv), nil
	case SchemeDebian:
		av, err := debver.NewVersion(a)
		if err != nil {
			return 0, err
		}
		bv, err := debver.NewVersion(b)
		if err != nil {
			return 0, err
		}
		switch {
		case av.LessThan(bv):
			return -1, nil
		case bv.LessThan(av):
			return 1, nil
		default:
			return 0, nil
		}
	case SchemeRPM:
		av, bv := rpmver.NewVersion(a), rpmver.NewVersion(b)
		switch av.Compare(bv) {
		case rpmver.GREATER:
			return 1, nil
		case rpmver.LESS:
			return -1, nil
		default:
			return 0, nil
		}
	case SchemeAlpine:
		av, err := apkversion.NewVersion(a)
		if err != nil {
			return 0, err
		}
		bv, err := apkversion.NewVersion(b)
		if err != nil {
			return 0, err
		}
		switch {
		case av.LessThan(bv):
			return -1, nil
		case bv.LessThan(av):
			return 1, nil
		default:
			return 0, nil
		}
	case SchemeSemver:
		av, err := semver.NewVersion(a)
		if err != nil {
			return 0, err
		}
		bv, err := semver.NewVersion(b)
		if err != nil {
			return 0, err
		}
		return av.Compare(bv), nil
	case SchemeEcosystem:
		switch {
		case a == b:
			return 0, nil
		default:
			return 0, fmt.Errorf("version: opaque ecosystem strings %q and %q are not orderable", a, b)
		}
	default:
		return 0, fmt.Errorf("version: unknown scheme %q", scheme)
	}
}

// IsAffected evaluates the ordered events of a [bazbom.VersionRange]
// against a concrete version string, per spec §4.1: scan left to right,
// Introduced sets the affected flag when version >= v, Fixed clears it
// when version >= v, LastAffected clears it when version > v.
//
// An unparseable version is conservative-include: the caller-visible
// error wraps bazbom.ErrInvalid and the returned bool is true, so callers
// that ignore the error still get the safe default.
func IsAffected(scheme Scheme, ver string, r bazbom.VersionRange) (bool, error) {
	affected := false
	for _, ev := range r.Events {
		cmp, err := Compare(scheme, ver, ev.Version)
		if err != nil {
			return true, &bazbom.Error{
				Kind:    bazbom.ErrInvalid,
				Op:      "version.IsAffected",
				Message: fmt.Sprintf("unparseable version %q against event %q", ver, ev.Version),
				Inner:   err,
			}
		}
		switch ev.Kind {
		case bazbom.Introduced:
			if cmp >= 0 {
				affected = true
			}
		case bazbom.Fixed:
			if cmp >= 0 {
				affected = false
			}
		case bazbom.LastAffected:
			if cmp > 0 {
				affected = false
			}
		}
	}
	return affected, nil
}
