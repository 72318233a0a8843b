package catalogsync

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns 1 - editDistance/maxLength over the normalized names,
// in [0, 1]. Two empty names are identical.
func Similarity(a, b string) float64 {
	a, b = NormalizeName(a), NormalizeName(b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
