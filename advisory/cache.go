// Package advisory is the C2 advisory store: it fetches and caches EPSS,
// CISA KEV, and OSV feeds on the filesystem, and falls back to NVD when an
// advisory's severity can't be resolved from those.
package advisory

import "strings"

// encodeKey percent-style-encodes the characters that can't appear
// unescaped in a cache filename: '/', ':', and '_' itself (so the escape
// sequences themselves stay unambiguous to decode).
func encodeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch r {
		case '_':
			b.WriteString("_UNDER_")
		case '/':
			b.WriteString("_SLASH_")
		case ':':
			b.WriteString("_COLON_")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decodeKey is the inverse of encodeKey.
func decodeKey(encoded string) string {
	r := strings.NewReplacer(
		"_SLASH_", "/",
		"_COLON_", ":",
		"_UNDER_", "_",
	)
	return r.Replace(encoded)
}
