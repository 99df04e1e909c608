package matching

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Distance returns the Levenshtein edit distance between the raw inputs:
// the minimum number of single-rune insertions, deletions, and substitutions
// transforming one into the other.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similarity scores two strings in [0,100]. Inputs that are equal after
// lowercasing and trimming short-circuit to 100; otherwise the score is
// derived from the edit distance relative to the longer string.
func Similarity(a, b string) int {
	s1 := strings.TrimSpace(strings.ToLower(a))
	s2 := strings.TrimSpace(strings.ToLower(b))

	if s1 == s2 {
		return 100
	}

	maxLen := utf8.RuneCountInString(s1)
	if n := utf8.RuneCountInString(s2); n > maxLen {
		maxLen = n
	}

	dist := Distance(s1, s2)
	return int(math.Round((1 - float64(dist)/float64(maxLen)) * 100))
}

// NameSimilarity scores two first/last name pairs in [0,100]. All parts are
// normalized first; identical full names score 100, otherwise the last name
// carries more weight since surnames vary less under common nicknaming and
// spelling variation.
func NameSimilarity(first1, last1, first2, last2 string) int {
	f1 := Normalize(first1)
	l1 := Normalize(last1)
	f2 := Normalize(first2)
	l2 := Normalize(last2)

	if f1+" "+l1 == f2+" "+l2 {
		return 100
	}

	firstScore := Similarity(f1, f2)
	lastScore := Similarity(l1, l2)
	return int(math.Round(0.4*float64(firstScore) + 0.6*float64(lastScore)))
}
