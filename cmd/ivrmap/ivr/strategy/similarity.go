package strategy

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
)

// tokenize splits a field name into its normalized word tokens.
func tokenize(name string) []string {
	normalized := registry.NormalizeFieldName(name)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, "_")
}

// levenshteinSimilarity converts edit distance into a similarity in [0,1].
func levenshteinSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	maxLen := math.Max(float64(len(s1)), float64(len(s2)))
	if maxLen == 0 {
		return 1.0
	}
	distance := levenshtein.ComputeDistance(s1, s2)
	return 1.0 - float64(distance)/maxLen
}

// jaroWinklerSimilarity is transposition-tolerant string similarity with a
// common-prefix bonus.
func jaroWinklerSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	len1, len2 := len(s1), len(s2)
	if len1 == 0 || len2 == 0 {
		return 0.0
	}

	matchWindow := int(math.Max(float64(len1), float64(len2))/2) - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	s1Matches := make([]bool, len1)
	s2Matches := make([]bool, len2)

	matches := 0
	for i := 0; i < len1; i++ {
		start := int(math.Max(0, float64(i-matchWindow)))
		end := int(math.Min(float64(len2), float64(i+matchWindow+1)))

		for j := start; j < end; j++ {
			if s2Matches[j] || s1[i] != s2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !s1Matches[i] {
			continue
		}
		for !s2Matches[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	jaro := (float64(matches)/float64(len1) + float64(matches)/float64(len2) +
		(float64(matches)-float64(transpositions)/2)/float64(matches)) / 3.0

	prefix := 0
	for i := 0; i < int(math.Min(float64(len1), float64(len2))) && i < 4; i++ {
		if s1[i] != s2[i] {
			break
		}
		prefix++
	}

	return jaro + 0.1*float64(prefix)*(1.0-jaro)
}

// tokenSetSimilarity is the Jaccard similarity of the two names' token sets.
func tokenSetSimilarity(tokens1, tokens2 []string) float64 {
	if len(tokens1) == 0 && len(tokens2) == 0 {
		return 1.0
	}
	if len(tokens1) == 0 || len(tokens2) == 0 {
		return 0.0
	}

	set1 := make(map[string]bool, len(tokens1))
	for _, token := range tokens1 {
		set1[token] = true
	}
	set2 := make(map[string]bool, len(tokens2))
	for _, token := range tokens2 {
		set2[token] = true
	}

	intersection := 0
	for token := range set1 {
		if set2[token] {
			intersection++
		}
	}

	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}
