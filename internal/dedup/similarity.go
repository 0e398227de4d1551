package dedup

import "github.com/agnivade/levenshtein"

// Similarity is 1 - distance/max(len(a), len(b)) with the Levenshtein
// distance and lengths both counted in runes. Two empty signatures are
// identical.
func Similarity(a, b Signature) float64 {
	la, lb := a.Len(), b.Len()
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	if a.text == b.text {
		return 1
	}
	d := levenshtein.ComputeDistance(a.text, b.text)
	return 1 - float64(d)/float64(longest)
}
