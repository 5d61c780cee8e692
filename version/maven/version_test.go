package maven

import "testing"

func TestCompare(t *testing.T) {
	tt := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"1.1", "1.0", 1},
		{"1.0-alpha-1", "1.0", -1},
		{"1.0-beta-1", "1.0-alpha-1", 1},
		{"1.0-rc1", "1.0-milestone-1", 1},
		{"1.0-snapshot", "1.0-rc1", 1},
		{"1.0", "1.0-sp", -1},
		{"1.0.0", "1", 0},
		{"2.0", "1.9.9", 1},
	}
	for _, tc := range tt {
		a, err := ParseVersion(tc.a)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.a, err)
		}
		b, err := ParseVersion(tc.b)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.b, err)
		}
		if got := a.Compare(b); got != tc.want { // a, b are *Version
			t.Errorf("Compare(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
