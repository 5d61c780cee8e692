package advisory

import (
	"fmt"
	"strings"

	"github.com/quay/claircore/toolkit/types/cvss"
)

// baseScoreFromVector computes a CVSS base score from a vector string
// using the formal v2/v3 algorithm (impact sub-score, exploitability
// sub-score, scope-aware combination, round up to 0.1), per spec §4.2/§4.6.
func baseScoreFromVector(vector string) (float64, error) {
	switch cvss.Version(vector) {
	case 3:
		v, err := cvss.ParseV3(vector)
		if err != nil {
			return 0, fmt.Errorf("advisory: parse CVSS v3 vector %q: %w", vector, err)
		}
		return v.Score(), nil
	case 2:
		v, err := cvss.ParseV2(vector)
		if err != nil {
			return 0, fmt.Errorf("advisory: parse CVSS v2 vector %q: %w", vector, err)
		}
		return v.Score(), nil
	default:
		return 0, fmt.Errorf("advisory: unrecognized CVSS vector %q", vector)
	}
}

// ScoreFromVector is the exported form of baseScoreFromVector, for callers
// outside this package (the enrichment engine's CVSS-from-vector step)
// that need to derive a base score without duplicating the CVSS algorithm.
func ScoreFromVector(vector string) (float64, error) {
	return baseScoreFromVector(normalizeCVSSVector(vector))
}

// normalizeCVSSVector fills in the default AV:N (network) when a vector
// string omits the Attack Vector metric, per spec §8's boundary behavior.
func normalizeCVSSVector(vector string) string {
	if strings.Contains(vector, "/AV:") || !strings.HasPrefix(vector, "CVSS:3") {
		return vector
	}
	return vector + "/AV:N"
}
