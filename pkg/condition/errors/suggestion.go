package errors

import "fmt"

// maxSuggestDistance bounds how different a candidate may be and still be offered.
const maxSuggestDistance = 3

// SuggestName suggests the closest valid name when an unknown one is referenced.
// It uses Levenshtein distance and returns "" when nothing is close enough.
func SuggestName(unknown string, valid []string) string {
	if best := ClosestName(unknown, valid); best != "" {
		return fmt.Sprintf("did you mean '%s'?", best)
	}
	return ""
}

// ClosestName returns the valid name nearest to unknown, or "" when none is
// within the suggestion distance. Ties go to the earliest candidate.
func ClosestName(unknown string, valid []string) string {
	minDistance := maxSuggestDistance + 1
	var bestMatch string

	for _, name := range valid {
		dist := levenshteinDistance(unknown, name)
		if dist < minDistance {
			minDistance = dist
			bestMatch = name
		}
	}

	if bestMatch == unknown {
		return ""
	}
	return bestMatch
}

// levenshteinDistance computes the Levenshtein distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	len1 := len(r1)
	len2 := len(r2)

	// Create distance matrix
	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // Deletion
				matrix[i][j-1]+1,      // Insertion
				matrix[i-1][j-1]+cost, // Substitution
			)
		}
	}

	return matrix[len1][len2]
}
