package strategy

import (
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
)

// ExactStrategy matches on case-insensitive raw-name equality, or on both
// names resolving to the same canonical field through the registry.
type ExactStrategy struct {
	registry *registry.Registry
}

// NewExactStrategy creates the exact matcher.
func NewExactStrategy(reg *registry.Registry) *ExactStrategy {
	return &ExactStrategy{registry: reg}
}

func (s *ExactStrategy) Name() string { return NameExact }

func (s *ExactStrategy) Score(src source.SourceField, target template.TemplateField) *MatchCandidate {
	srcKey := registry.NormalizeFieldName(src.Name)
	targetKey := registry.NormalizeFieldName(target.Name)
	if srcKey == "" || targetKey == "" {
		return nil
	}

	if srcKey == targetKey {
		return &MatchCandidate{
			SourceField: src.Name,
			TargetField: target.Name,
			Strategy:    NameExact,
			Score:       1.0,
			Rationale:   "raw field names are equal (case-insensitive)",
		}
	}

	// Unresolvable fields are simply excluded from canonical matching;
	// raw-name matching above already had its chance.
	srcCanonical := s.registry.Resolve(src.Name)
	targetCanonical := s.registry.Resolve(target.Name)
	if srcCanonical == nil || targetCanonical == nil {
		return nil
	}

	if srcCanonical.Name == targetCanonical.Name {
		return &MatchCandidate{
			SourceField: src.Name,
			TargetField: target.Name,
			Strategy:    NameExact,
			Score:       1.0,
			Rationale:   "both names resolve to canonical field " + srcCanonical.Name,
		}
	}

	return nil
}
