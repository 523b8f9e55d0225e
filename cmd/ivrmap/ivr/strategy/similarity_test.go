package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, levenshteinSimilarity("npi", "npi"))
	assert.Equal(t, 1.0, levenshteinSimilarity("", ""))
	assert.Equal(t, 0.0, levenshteinSimilarity("abc", "xyz"))

	// One substitution in a four-letter word.
	assert.InDelta(t, 0.75, levenshteinSimilarity("date", "dote"), 1e-9)
}

func TestJaroWinklerSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, jaroWinklerSimilarity("physician", "physician"))
	assert.Equal(t, 0.0, jaroWinklerSimilarity("", "physician"))

	// Transpositions still score high.
	score := jaroWinklerSimilarity("physican", "physician")
	assert.Greater(t, score, 0.9)

	// Shared prefix earns the Winkler bonus over plain Jaro.
	withPrefix := jaroWinklerSimilarity("patient_dob", "patient_day")
	assert.Greater(t, withPrefix, 0.8)
}

func TestTokenSetSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, tokenSetSimilarity(nil, nil))
	assert.Equal(t, 0.0, tokenSetSimilarity([]string{"a"}, nil))
	assert.Equal(t, 1.0, tokenSetSimilarity([]string{"patient", "name"}, []string{"name", "patient"}))
	assert.InDelta(t, 1.0/3.0, tokenSetSimilarity([]string{"patient", "name"}, []string{"patient", "dob"}), 1e-9)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"physician", "name"}, tokenize("Physician Name"))
	assert.Nil(t, tokenize("  "))
}
