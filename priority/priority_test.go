package priority

import (
	"testing"

	"github.com/bazbom/bazbom"
)

func sevWithScore(score float64) *bazbom.Severity {
	return &bazbom.Severity{Level: bazbom.LevelFromCVSS(score), Score: score, HasScore: true}
}

func TestScoreDecisionTree(t *testing.T) {
	tt := []struct {
		name string
		m    bazbom.VulnerabilityMatch
		want bazbom.Priority
	}{
		{
			name: "kev always P0",
			m: bazbom.VulnerabilityMatch{
				KEV:           &bazbom.KevEntry{CVEID: "CVE-2024-0001"},
				Vulnerability: bazbom.Vulnerability{Severity: sevWithScore(3.0)},
			},
			want: bazbom.P0,
		},
		{
			name: "epss >= 0.9 is P0",
			m: bazbom.VulnerabilityMatch{
				EPSS:          &bazbom.EpssScore{Score: 0.95},
				Vulnerability: bazbom.Vulnerability{Severity: sevWithScore(5.0)},
			},
			want: bazbom.P0,
		},
		{
			name: "cvss >= 9.0 is P0",
			m: bazbom.VulnerabilityMatch{
				Vulnerability: bazbom.Vulnerability{Severity: sevWithScore(9.8)},
			},
			want: bazbom.P0,
		},
		{
			name: "cvss >= 7.0 and epss >= 0.5 is P1",
			m: bazbom.VulnerabilityMatch{
				EPSS:          &bazbom.EpssScore{Score: 0.6},
				Vulnerability: bazbom.Vulnerability{Severity: sevWithScore(7.5)},
			},
			want: bazbom.P1,
		},
		{
			name: "cvss >= 7.0 alone is P2",
			m: bazbom.VulnerabilityMatch{
				Vulnerability: bazbom.Vulnerability{Severity: sevWithScore(7.2)},
			},
			want: bazbom.P2,
		},
		{
			name: "cvss >= 4.0 and epss >= 0.1 is P2",
			m: bazbom.VulnerabilityMatch{
				EPSS:          &bazbom.EpssScore{Score: 0.15},
				Vulnerability: bazbom.Vulnerability{Severity: sevWithScore(5.0)},
			},
			want: bazbom.P2,
		},
		{
			name: "cvss >= 4.0 alone is P3",
			m: bazbom.VulnerabilityMatch{
				Vulnerability: bazbom.Vulnerability{Severity: sevWithScore(4.5)},
			},
			want: bazbom.P3,
		},
		{
			name: "no signal is P4",
			m:    bazbom.VulnerabilityMatch{},
			want: bazbom.P4,
		},
	}
	for _, tc := range tt {
		Score(&tc.m)
		if tc.m.Priority != tc.want {
			t.Errorf("%s: priority = %v, want %v", tc.name, tc.m.Priority, tc.want)
		}
	}
}

func TestDifficultyScore(t *testing.T) {
	m := &bazbom.VulnerabilityMatch{Component: bazbom.Component{Name: "spring-core"}}
	got := DifficultyScore(m, true, true, 1)
	want := 10 + 40 + 1*15 + 25
	if got != want {
		t.Errorf("difficulty = %d, want %d", got, want)
	}
}

func TestDifficultyScoreNoFix(t *testing.T) {
	m := &bazbom.VulnerabilityMatch{}
	if got := DifficultyScore(m, false, false, 0); got != bazbom.NoFixDifficulty {
		t.Errorf("difficulty = %d, want NoFixDifficulty (%d)", got, bazbom.NoFixDifficulty)
	}
}

func TestDifficultyScoreCapsAt95(t *testing.T) {
	m := &bazbom.VulnerabilityMatch{Component: bazbom.Component{Name: "django"}}
	got := DifficultyScore(m, true, true, 6)
	if got != 95 {
		t.Errorf("difficulty = %d, want capped at 95", got)
	}
}
