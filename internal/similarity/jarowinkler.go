// Package similarity implements the string and JSON-schema similarity
// kernels: Jaro-Winkler distance over lowercased strings, and a structural
// comparison of JSON Schema property/required sets.
package similarity

import (
	"strings"
)

// winklerPrefixCap is the maximum common-prefix length that contributes to
// the Winkler bonus.
const winklerPrefixCap = 4

// winklerScalingFactor is the standard Winkler adjustment weight.
const winklerScalingFactor = 0.1

// String returns the Jaro-Winkler similarity of a and b in [0,1].
// Comparison is case-insensitive. Two empty strings are identical (1); one
// empty and one non-empty string share nothing (0).
func String(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	j := jaro(a, b)
	if j == 0 {
		return 0
	}

	prefix := commonPrefixLen(a, b, winklerPrefixCap)
	score := j + float64(prefix)*winklerScalingFactor*(1-j)
	return min1(score)
}

func jaro(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	la, lb := len(ra), len(rb)

	matchWindow := max(la, lb)/2 - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	aMatched := make([]bool, la)
	bMatched := make([]bool, lb)

	var matches int
	for i := 0; i < la; i++ {
		lo := max(0, i-matchWindow)
		hi := min(lb-1, i+matchWindow)
		for k := lo; k <= hi; k++ {
			if bMatched[k] || ra[i] != rb[k] {
				continue
			}
			aMatched[i] = true
			bMatched[k] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	var transpositions int
	k := 0
	for i := 0; i < la; i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}

func commonPrefixLen(a, b string, limit int) int {
	ra := []rune(a)
	rb := []rune(b)
	n := min(len(ra), len(rb))
	if n > limit {
		n = limit
	}
	i := 0
	for i < n && ra[i] == rb[i] {
		i++
	}
	return i
}

func min1(x float64) float64 {
	if x > 1 {
		return 1
	}
	return x
}
