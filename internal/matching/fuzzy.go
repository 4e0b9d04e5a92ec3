package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"
)

// FuzzyRatio returns a 0..100 similarity of a and b based on Levenshtein
// distance over lower-cased, NFKC-normalised runes.
func FuzzyRatio(a, b string) float64 {
	a = normalizeSkill(a)
	b = normalizeSkill(b)
	if a == b {
		return 100
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}
