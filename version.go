package bazbom

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a fixed-width, ecosystem-agnostic comparison key.
//
// The semver and pep440 schemes pack their native version strings into
// the numeric slots; the maven, rubygems, deb, rpm and apk schemes only
// record Kind. Range evaluation in the version package orders every
// scheme with its native comparator, not with [Version.Compare]. V[0]
// holds an epoch; the
// remaining slots hold release/pre-release components padded with zeros.
// Kind records which comparator produced the value, purely for
// diagnostics - Compare never inspects it.
type Version struct {
	Kind string
	V    [10]int32
}

// String renders v as a dotted, epoch-prefixed string. Trailing zero
// components are trimmed so that Version{V:[10]int32{0,1}}.String() == "1"
// rather than "1.0.0.0.0.0.0.0.0".
func (v *Version) String() string {
	var b strings.Builder
	if v.V[0] != 0 {
		fmt.Fprintf(&b, "%d!", v.V[0])
	}
	end := len(v.V)
	for end > 1 && v.V[end-1] == 0 {
		end--
	}
	for i := 1; i < end; i++ {
		if i > 1 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", v.V[i])
	}
	if end == 1 {
		b.WriteByte('0')
	}
	return b.String()
}

// MarshalText implements [encoding.TextMarshaler].
func (v *Version) MarshalText() ([]byte, error) {
	return []byte(v.Kind + ":" + v.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler]. The inverse of
// MarshalText; it does not attempt to re-parse ecosystem syntax, only the
// "kind:epoch!dotted.release" form MarshalText produces.
func (v *Version) UnmarshalText(text []byte) error {
	kind, rest, ok := bytes.Cut(text, []byte(":"))
	if !ok {
		return fmt.Errorf("bazbom: malformed version text %q", text)
	}
	*v = Version{Kind: string(kind)}
	s := string(rest)
	if epoch, dotted, ok := strings.Cut(s, "!"); ok {
		e, err := strconv.ParseInt(epoch, 10, 32)
		if err != nil {
			return fmt.Errorf("bazbom: malformed version epoch %q: %w", s, err)
		}
		v.V[0] = int32(e)
		s = dotted
	}
	parts := strings.Split(s, ".")
	if len(parts) > len(v.V)-1 {
		return fmt.Errorf("bazbom: version %q has too many components", s)
	}
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return fmt.Errorf("bazbom: malformed version component %q: %w", p, err)
		}
		v.V[i+1] = int32(n)
	}
	return nil
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// v2, comparing element-wise left to right. Kind is ignored: callers are
// responsible for only comparing Versions produced within the same
// ecosystem (the version dispatcher package enforces this).
func (v Version) Compare(v2 Version) int {
	for i := range v.V {
		switch {
		case v.V[i] < v2.V[i]:
			return -1
		case v.V[i] > v2.V[i]:
			return 1
		}
	}
	return 0
}

// FromSemver converts a parsed semantic version into the normalized form.
// Pre-release and build metadata are not representable in the fixed
// numeric layout, so callers that need to distinguish "1.0.0-alpha" from
// "1.0.0" should compare the original strings as a tiebreaker; FromSemver
// alone is sufficient for the common case of ordering release versions.
func FromSemver(sv *semver.Version) Version {
	v := Version{Kind: "semver"}
	v.V[1] = int32(sv.Major())
	v.V[2] = int32(sv.Minor())
	v.V[3] = int32(sv.Patch())
	return v
}
