package main

import (
	"errors"
	"testing"
)

func TestExitCodeForMapsSentinelTypes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"policy violation", &policyViolation{message: "too many criticals"}, 2},
		{"config error", &configError{message: "bad flag"}, 3},
		{"generic error", errors.New("boom"), 1},
	}
	for _, c := range cases {
		if got := exitCodeFor(c.err); got != c.want {
			t.Errorf("%s: exitCodeFor() = %d, want %d", c.name, got, c.want)
		}
	}
}
