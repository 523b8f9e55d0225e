// types.go
package strategy

import (
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
)

// Strategy names, also used as tie-break priority order in the aggregator.
const (
	NameExact    = "exact"
	NameSemantic = "semantic"
	NamePattern  = "pattern"
	NameFuzzy    = "fuzzy"
)

// MatchCandidate is one strategy's opinion about a (source, target) pair.
type MatchCandidate struct {
	SourceField string  `json:"source_field"`
	TargetField string  `json:"target_field"`
	Strategy    string  `json:"strategy"`
	Score       float64 `json:"score"`
	Rationale   string  `json:"rationale"`
}

// Strategy scores a source field against a target template field. A nil
// result means the strategy has no basis to score the pair; it is excluded
// from aggregation entirely. A zero score is a real opinion and still
// participates in ranking.
type Strategy interface {
	Name() string
	Score(src source.SourceField, target template.TemplateField) *MatchCandidate
}
