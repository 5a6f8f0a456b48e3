package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle reduces a title to a lossy comparison key: NFKC fold,
// diacritics stripped, lowercased, everything outside [a-z0-9] dropped.
// Deliberately aggressive so "Solo Leveling", "SOLO-LEVELING!!" and
// "solo leveling " all collide. Used only for duplicate detection, never
// displayed.
func NormalizeTitle(title string) string {
	folded := norm.NFKC.String(strings.TrimSpace(title))
	folded = stripDiacritics(folded)
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// stripDiacritics removes combining marks after NFD decomposition
// (é -> e, ō -> o).
func stripDiacritics(s string) string {
	decomp := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomp))
	for _, r := range decomp {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
