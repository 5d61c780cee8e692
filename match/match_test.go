package match

import (
	"context"
	"testing"

	"github.com/bazbom/bazbom"
)

func rangeFixed(introduced, fixed string) bazbom.VersionRange {
	return bazbom.VersionRange{
		RangeType: bazbom.RangeSemver,
		Events: []bazbom.VersionEvent{
			{Kind: bazbom.Introduced, Version: introduced},
			{Kind: bazbom.Fixed, Version: fixed},
		},
	}
}

func TestMatchAffected(t *testing.T) {
	// S1: pkg:maven/commons-io@2.6 against [Introduced 2.0, Fixed 2.7].
	components := []bazbom.Component{
		{Name: "commons-io", Ecosystem: "Maven", Version: "2.6"},
	}
	advisories := []bazbom.Vulnerability{
		{
			ID: "CVE-2021-1111",
			Affected: []bazbom.AffectedPackage{
				{Ecosystem: "Maven", Package: "commons-io", Ranges: []bazbom.VersionRange{rangeFixed("2.0", "2.7")}},
			},
		},
	}
	idx := BuildIndex(advisories)
	matches, err := Match(context.Background(), components, idx)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1: %+v", len(matches), matches)
	}
	if matches[0].Vulnerability.ID != "CVE-2021-1111" {
		t.Errorf("vuln ID = %q, want CVE-2021-1111", matches[0].Vulnerability.ID)
	}
}

func TestMatchUnaffectedAfterFix(t *testing.T) {
	components := []bazbom.Component{
		{Name: "commons-io", Ecosystem: "Maven", Version: "2.8"},
	}
	advisories := []bazbom.Vulnerability{
		{
			ID: "CVE-2021-1111",
			Affected: []bazbom.AffectedPackage{
				{Ecosystem: "Maven", Package: "commons-io", Ranges: []bazbom.VersionRange{rangeFixed("2.0", "2.7")}},
			},
		},
	}
	idx := BuildIndex(advisories)
	matches, err := Match(context.Background(), components, idx)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("got %d matches, want 0: %+v", len(matches), matches)
	}
}

func TestMatchDedupMergesAliasReferences(t *testing.T) {
	components := []bazbom.Component{
		{Name: "lodash", Ecosystem: "npm", Version: "4.17.15"},
	}
	advisories := []bazbom.Vulnerability{
		{
			ID:         "GHSA-abcd-1234",
			Aliases:    []string{"CVE-2020-8203"},
			References: []string{"https://github.com/advisories/GHSA-abcd-1234"},
			Affected: []bazbom.AffectedPackage{
				{Ecosystem: "npm", Package: "lodash", Ranges: []bazbom.VersionRange{rangeFixed("0", "4.17.19")}},
			},
		},
		{
			ID:         "CVE-2020-8203",
			References: []string{"https://nvd.nist.gov/vuln/detail/CVE-2020-8203"},
			Affected: []bazbom.AffectedPackage{
				{Ecosystem: "npm", Package: "lodash", Ranges: []bazbom.VersionRange{rangeFixed("0", "4.17.19")}},
			},
		},
	}
	idx := BuildIndex(advisories)
	matches, err := Match(context.Background(), components, idx)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 deduplicated match: %+v", len(matches), matches)
	}
	m := matches[0]
	if m.Vulnerability.ID != "CVE-2020-8203" {
		t.Errorf("canonical ID = %q, want CVE-2020-8203", m.Vulnerability.ID)
	}
	if len(m.Vulnerability.References) != 2 {
		t.Errorf("references = %v, want 2 merged references", m.Vulnerability.References)
	}
}

func TestMatchConservativeIncludeOnParseFailure(t *testing.T) {
	components := []bazbom.Component{
		{Name: "weird-pkg", Ecosystem: "npm", Version: "not-a-semver"},
	}
	advisories := []bazbom.Vulnerability{
		{
			ID: "CVE-2022-9999",
			Affected: []bazbom.AffectedPackage{
				{Ecosystem: "npm", Package: "weird-pkg", Ranges: []bazbom.VersionRange{rangeFixed("0", "2.0.0")}},
			},
		},
	}
	idx := BuildIndex(advisories)
	matches, err := Match(context.Background(), components, idx)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected conservative-include on parse failure, got %d matches", len(matches))
	}
}

// TestMatchMavenNamespaceJoin is spec scenario S1: the OSV package
// identity for a Maven coordinate is "groupId:artifactId", not the bare
// artifactId, so the index must be keyed on the joined form.
func TestMatchMavenNamespaceJoin(t *testing.T) {
	components := []bazbom.Component{
		{Name: "commons-io", Namespace: "commons-io", Ecosystem: "Maven", Version: "2.6"},
	}
	advisories := []bazbom.Vulnerability{
		{
			ID: "CVE-2021-1111",
			Affected: []bazbom.AffectedPackage{
				{Ecosystem: "Maven", Package: "commons-io:commons-io", Ranges: []bazbom.VersionRange{rangeFixed("2.0", "2.7")}},
			},
		},
	}
	idx := BuildIndex(advisories)
	matches, err := Match(context.Background(), components, idx)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (groupId:artifactId join): %+v", len(matches), matches)
	}

	// A same-named artifact under a different groupId must not match.
	decoys := []bazbom.Component{
		{Name: "commons-io", Namespace: "some.other.group", Ecosystem: "Maven", Version: "2.6"},
	}
	decoyMatches, err := Match(context.Background(), decoys, idx)
	if err != nil {
		t.Fatal(err)
	}
	if len(decoyMatches) != 0 {
		t.Fatalf("got %d matches for a different groupId, want 0: %+v", len(decoyMatches), decoyMatches)
	}
}

// TestMatchNPMScopedNamespaceJoin is spec scenario S6: a scoped npm
// package's OSV identity is "@scope/name".
func TestMatchNPMScopedNamespaceJoin(t *testing.T) {
	components := []bazbom.Component{
		{Name: "code-frame", Namespace: "@babel", Ecosystem: "npm", Version: "7.18.6"},
	}
	advisories := []bazbom.Vulnerability{
		{
			ID: "CVE-2023-2222",
			Affected: []bazbom.AffectedPackage{
				{Ecosystem: "npm", Package: "@babel/code-frame", Ranges: []bazbom.VersionRange{rangeFixed("0", "7.22.5")}},
			},
		},
	}
	idx := BuildIndex(advisories)
	matches, err := Match(context.Background(), components, idx)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (@scope/name join): %+v", len(matches), matches)
	}
}
