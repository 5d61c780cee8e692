package version

import (
	"testing"

	"github.com/bazbom/bazbom"
)

func TestSchemeForEcosystem(t *testing.T) {
	tt := []struct {
		ecosystem string
		want      Scheme
	}{
		{"npm", SchemeSemver},
		{"Cargo", SchemeSemver},
		{"Go", SchemeSemver},
		{"Maven", SchemeMaven},
		{"Gradle", SchemeMaven},
		{"Bazel", SchemeMaven},
		{"PyPI", SchemePEP440},
		{"Ruby", SchemeRubyGems},
		{"Composer", SchemeEcosystem},
	}
	for _, tc := range tt {
		if got := SchemeForEcosystem(tc.ecosystem); got != tc.want {
			t.Errorf("SchemeForEcosystem(%q) = %q, want %q", tc.ecosystem, got, tc.want)
		}
	}
}

func TestIsAffected(t *testing.T) {
	// S1: pkg:maven/commons-io@2.6 against [Introduced 2.0, Fixed 2.7].
	r := bazbom.VersionRange{
		RangeType: bazbom.RangeSemver,
		Events: []bazbom.VersionEvent{
			{Kind: bazbom.Introduced, Version: "2.0"},
			{Kind: bazbom.Fixed, Version: "2.7"},
		},
	}
	got, err := IsAffected(SchemeMaven, "2.6", r)
	if err != nil {
		t.Fatalf("IsAffected: %v", err)
	}
	if !got {
		t.Errorf("IsAffected(2.6, [2.0,2.7)) = false, want true")
	}

	got, err = IsAffected(SchemeMaven, "2.8", r)
	if err != nil {
		t.Fatalf("IsAffected: %v", err)
	}
	if got {
		t.Errorf("IsAffected(2.8, [2.0,2.7)) = true, want false")
	}
}

func TestIsAffectedLastAffected(t *testing.T) {
	r := bazbom.VersionRange{
		RangeType: bazbom.RangeSemver,
		Events: []bazbom.VersionEvent{
			{Kind: bazbom.Introduced, Version: "1.0.0"},
			{Kind: bazbom.LastAffected, Version: "1.2.0"},
		},
	}
	got, err := IsAffected(SchemeSemver, "1.2.0", r)
	if err != nil {
		t.Fatalf("IsAffected: %v", err)
	}
	if !got {
		t.Errorf("IsAffected(1.2.0, lastAffected 1.2.0) = false, want true")
	}
	got, err = IsAffected(SchemeSemver, "1.3.0", r)
	if err != nil {
		t.Fatalf("IsAffected: %v", err)
	}
	if got {
		t.Errorf("IsAffected(1.3.0, lastAffected 1.2.0) = true, want false")
	}
}

func TestIsAffectedConservativeInclude(t *testing.T) {
	r := bazbom.VersionRange{
		Events: []bazbom.VersionEvent{
			{Kind: bazbom.Introduced, Version: "1.0.0"},
		},
	}
	got, err := IsAffected(SchemeSemver, "not-a-version", r)
	if err == nil {
		t.Fatalf("IsAffected: expected error for unparseable version")
	}
	if !got {
		t.Errorf("IsAffected with parse failure = false, want conservative-include true")
	}
}
