package strategy

import (
	"fmt"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
)

// Component weights of the composite fuzzy score.
const (
	fuzzyEditWeight     = 0.4
	fuzzyJaroWeight     = 0.4
	fuzzyTokenSetWeight = 0.2
)

// FuzzyStrategy scores pairs by composite string similarity: edit distance,
// transposition-tolerant similarity and token-set overlap. For OCR-sourced
// fields the extractor's upstream confidence is applied as a prior.
type FuzzyStrategy struct{}

// NewFuzzyStrategy creates the fuzzy string matcher.
func NewFuzzyStrategy() *FuzzyStrategy {
	return &FuzzyStrategy{}
}

func (s *FuzzyStrategy) Name() string { return NameFuzzy }

func (s *FuzzyStrategy) Score(src source.SourceField, target template.TemplateField) *MatchCandidate {
	srcName := registry.NormalizeFieldName(src.Name)
	targetName := registry.NormalizeFieldName(target.Name)
	if srcName == "" || targetName == "" {
		return nil
	}

	score := fuzzyEditWeight*levenshteinSimilarity(srcName, targetName) +
		fuzzyJaroWeight*jaroWinklerSimilarity(srcName, targetName) +
		fuzzyTokenSetWeight*tokenSetSimilarity(tokenize(src.Name), tokenize(target.Name))

	rationale := fmt.Sprintf("composite string similarity %.2f", score)
	if src.Provenance == source.ProvenanceOCR && src.Confidence != nil {
		score *= *src.Confidence
		rationale = fmt.Sprintf("%s, scaled by OCR confidence %.2f", rationale, *src.Confidence)
	}

	return &MatchCandidate{
		SourceField: src.Name,
		TargetField: target.Name,
		Strategy:    NameFuzzy,
		Score:       score,
		Rationale:   rationale,
	}
}
