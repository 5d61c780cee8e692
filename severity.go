package bazbom

import "fmt"

// Level is the normalized severity level of a [Vulnerability], per
// spec §3: one of Unknown, Low, Medium, High, Critical.
//
// Negligible is carried as an additional rung below Low because several
// source advisories (distro security trackers in particular) use it, and
// collapsing it into Low would lose information useful to the priority
// scorer's CVSS fallback.
type Level uint8

const (
	Unknown Level = iota
	Negligible
	Low
	Medium
	High
	Critical
)

//go:generate stringer -type=Level

func (l Level) String() string {
	switch l {
	case Negligible:
		return "Negligible"
	case Low:
		return "Low"
	case Medium:
		return "Medium"
	case High:
		return "High"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// MarshalText implements [encoding.TextMarshaler].
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (l *Level) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Negligible":
		*l = Negligible
	case "Low":
		*l = Low
	case "Medium":
		*l = Medium
	case "High":
		*l = High
	case "Critical":
		*l = Critical
	case "Unknown", "":
		*l = Unknown
	default:
		return fmt.Errorf("bazbom: unknown severity level %q", string(b))
	}
	return nil
}

// LevelFromCVSS buckets a CVSS base score (0-10) into a [Level] using the
// standard FIRST.org v3 qualitative-severity ranges.
func LevelFromCVSS(score float64) Level {
	switch {
	case score >= 9.0:
		return Critical
	case score >= 7.0:
		return High
	case score >= 4.0:
		return Medium
	case score > 0:
		return Low
	default:
		return Unknown
	}
}

// Severity is the enriched severity envelope attached to a [Vulnerability]:
// a normalized level plus the raw CVSS vectors it was (or wasn't) derived
// from. At most one of CVSSv3/CVSSv4 is authoritative for a given advisory;
// both are kept because enrichment sources disagree about which version
// they publish.
type Severity struct {
	Level    Level   `json:"level"`
	CVSSv3   string  `json:"cvss_v3,omitempty"`
	CVSSv4   string  `json:"cvss_v4,omitempty"`
	Score    float64 `json:"score,omitempty"` // derived base score, 0 if unknown
	HasScore bool    `json:"-"`
}
