package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeField folds a header label for alias matching: NFKD decomposition,
// non-ASCII runes dropped, lowercased, and spaces, underscores and hyphens
// removed. "Coordenação", "E-mail" and "e_mail" become "coordenacao" and "email".
func NormalizeField(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range norm.NFKD.String(label) {
		if r > unicode.MaxASCII {
			continue
		}
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
