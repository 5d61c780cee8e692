package bazbom

import "time"

// Component is one resolved package in a scanned workspace.
//
// (Ecosystem, Namespace, Name, Version) uniquely identifies a Component
// within one scan. A Component is produced once by a parser (C3) and never
// mutated afterward; downstream stages attach findings that reference it
// by value, not by pointer.
type Component struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Ecosystem  string   `json:"ecosystem"`
	Namespace  string   `json:"namespace,omitempty"`
	DirectDeps []string `json:"direct_deps,omitempty"`
	PURL       string   `json:"purl"`
	Location   string   `json:"location"`
	License    string   `json:"license,omitempty"`
}

// PackageName returns the identifier OSV advisories key packages by,
// joining Namespace into Name the way each ecosystem's OSV "package.name"
// field is written: "groupId:artifactId" for the Maven family, "@scope/name"
// for a scoped npm package, and the bare Name everywhere else. The matcher
// and the OSV query both use this instead of the bare Name, since a
// Namespace-less join silently loses groupId/scope and never matches a
// namespaced advisory.
func (c Component) PackageName() string {
	if c.Namespace == "" {
		return c.Name
	}
	switch c.Ecosystem {
	case "Maven", "Gradle", "Bazel":
		return c.Namespace + ":" + c.Name
	case "npm":
		return c.Namespace + "/" + c.Name
	default:
		return c.Name
	}
}

// RangeType selects how a VersionRange's bounds are compared.
type RangeType string

const (
	RangeSemver    RangeType = "SEMVER"
	RangeEcosystem RangeType = "ECOSYSTEM"
	RangeGit       RangeType = "GIT"
)

// EventKind tags a [VersionEvent].
type EventKind string

const (
	Introduced   EventKind = "introduced"
	Fixed        EventKind = "fixed"
	LastAffected EventKind = "last_affected"
)

// VersionEvent is one point in a VersionRange's ordered event list. Only
// one of the Kind's associated meaning applies; Version holds the event's
// version string in the range's native scheme.
type VersionEvent struct {
	Kind    EventKind `json:"kind"`
	Version string    `json:"version"`
}

// VersionRange is an ordered sequence of affected/fixed boundary events in
// one version scheme. Events must appear in release order; a Fixed event
// closes the Introduced window that precedes it. [IsAffected] evaluates a
// concrete version against a range's events.
type VersionRange struct {
	RangeType RangeType      `json:"range_type"`
	Events    []VersionEvent `json:"events"`
}

// AffectedPackage names one ecosystem/package pair and the ranges of it
// that a [Vulnerability] affects.
type AffectedPackage struct {
	Ecosystem string         `json:"ecosystem"`
	Package   string         `json:"package"`
	Ranges    []VersionRange `json:"ranges"`
}

// Severity is declared in severity.go.

// Vulnerability is a normalized advisory record, assembled by the advisory
// store (C2) from EPSS/KEV/OSV feeds and enriched in place by the
// enrichment engine (C6) and priority scorer (C7).
//
// When any alias is of the canonical form CVE-YYYY-NNNN+, at least one
// alias must be that canonical CVE ID.
type Vulnerability struct {
	ID         string            `json:"id"`
	Aliases    []string          `json:"aliases,omitempty"`
	Affected   []AffectedPackage `json:"affected,omitempty"`
	Severity   *Severity         `json:"severity,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Details    string            `json:"details,omitempty"`
	References []string          `json:"references,omitempty"`
	Published  time.Time         `json:"published,omitempty"`
	Modified   time.Time         `json:"modified,omitempty"`
	EPSS       *EpssScore        `json:"epss,omitempty"`
	KEV        *KevEntry         `json:"kev,omitempty"`
	Priority   Priority          `json:"priority,omitempty"`
}

// EpssScore is one CVE's Exploit Prediction Scoring System entry.
type EpssScore struct {
	Score      float64 `json:"score"`      // probability of exploitation in 30 days, [0,1]
	Percentile float64 `json:"percentile"` // rank among all scored CVEs, [0,1]
}

// KevEntry is one CVE's CISA Known Exploited Vulnerabilities catalog entry.
type KevEntry struct {
	CVEID          string    `json:"cve_id"`
	Vendor         string    `json:"vendor"`
	Product        string    `json:"product"`
	DateAdded      time.Time `json:"date_added"`
	DueDate        time.Time `json:"due_date"`
	RequiredAction string    `json:"required_action"`
}

// Priority is the operational urgency bucket the scorer (C7) assigns to a
// [VulnerabilityMatch]: P0 is most urgent, P4 least.
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
	P4 Priority = "P4"
)

// NoFixDifficulty is the reserved difficulty-score sentinel meaning "no
// fix is available"; it is never produced by the ordinary scoring formula,
// which caps finite values at 95.
const NoFixDifficulty = 100

// VulnerabilityMatch is one finding: a [Vulnerability] known to affect a
// [Component] in this scan, after enrichment and priority scoring.
type VulnerabilityMatch struct {
	Vulnerability   Vulnerability `json:"vulnerability"`
	Component       Component     `json:"component"`
	Reachable       *bool         `json:"reachable,omitempty"`
	Priority        Priority      `json:"priority"`
	EPSS            *EpssScore    `json:"epss,omitempty"`
	KEV             *KevEntry     `json:"kev,omitempty"`
	CallChain       []string      `json:"call_chain,omitempty"`
	DependencyPath  []string      `json:"dependency_path,omitempty"`
	DifficultyScore int           `json:"difficulty_score"`
}

// RemediationSuggestion is the synthesized fix for one [VulnerabilityMatch]
// with a known Fixed event at or above the component's current version.
type RemediationSuggestion struct {
	VulnID          string   `json:"vuln_id"`
	Ecosystem       string   `json:"ecosystem"`
	Package         string   `json:"package"`
	CurrentVersion  string   `json:"current_version"`
	FixedVersion    string   `json:"fixed_version,omitempty"`
	Severity        Level    `json:"severity"`
	Priority        Priority `json:"priority"`
	WhyFix          string   `json:"why_fix"`
	HowToFix        string   `json:"how_to_fix"`
	BreakingChanges string   `json:"breaking_changes,omitempty"`
	References      []string `json:"references,omitempty"`
}

// EcosystemScanResult is one ecosystem parser's output: every component it
// found under one root, plus any warnings it raised along the way.
type EcosystemScanResult struct {
	Ecosystem    string      `json:"ecosystem"`
	Root         string      `json:"root"`
	Components   []Component `json:"components"`
	Warnings     []string    `json:"warnings,omitempty"`
}
