package strategy

import (
	"fmt"
	"regexp"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
	"github.com/rs/zerolog"
)

// namePattern matches a target field name as evidence for a semantic type.
// Specificity scales the score: an unambiguous name like "npi" scores
// higher than a loose one like "provider number".
type namePattern struct {
	re          *regexp.Regexp
	specificity float64
}

var namePatterns = map[registry.SemanticType][]namePattern{
	registry.TypeNPI: {
		{regexp.MustCompile(`(?i)(^|_)npi($|_)`), 1.0},
		{regexp.MustCompile(`(?i)(provider|physician|prescriber|facility).*(number|id)`), 0.5},
	},
	registry.TypeDate: {
		{regexp.MustCompile(`(?i)(^|_)(date|dob)($|_)`), 1.0},
		{regexp.MustCompile(`(?i)(birth|signed|service|request|expir)`), 0.6},
	},
	registry.TypePhone: {
		{regexp.MustCompile(`(?i)(^|_)(phone|fax|tel|telephone)($|_)`), 1.0},
		{regexp.MustCompile(`(?i)(contact|mobile|cell)`), 0.6},
	},
	registry.TypeEmail: {
		{regexp.MustCompile(`(?i)(^|_)e?mail($|_)`), 1.0},
	},
	registry.TypeZip: {
		{regexp.MustCompile(`(?i)(^|_)(zip|postal)`), 1.0},
	},
	registry.TypeSSN: {
		{regexp.MustCompile(`(?i)(^|_)ssn($|_)`), 1.0},
		{regexp.MustCompile(`(?i)social.*security`), 0.9},
	},
	registry.TypeCurrency: {
		{regexp.MustCompile(`(?i)(amount|cost|price|copay|charge)`), 0.8},
	},
	registry.TypeBoolean: {
		{regexp.MustCompile(`(?i)(^|_)(is|has|flag)($|_)`), 0.5},
	},
}

var valuePatterns = map[registry.SemanticType]*regexp.Regexp{
	registry.TypeNPI:      regexp.MustCompile(`^\d{10}$`),
	registry.TypeDate:     regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|\d{1,2}-\d{1,2}-\d{4})$`),
	registry.TypePhone:    regexp.MustCompile(`^\+?1?[-. (]*\d{3}[-. )]*\d{3}[-. ]*\d{4}$`),
	registry.TypeEmail:    regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`),
	registry.TypeZip:      regexp.MustCompile(`^\d{5}(-\d{4})?$`),
	registry.TypeSSN:      regexp.MustCompile(`^\d{3}-?\d{2}-?\d{4}$`),
	registry.TypeCurrency: regexp.MustCompile(`^\$?\d+(\.\d{2})?$`),
	registry.TypeBoolean:  regexp.MustCompile(`(?i)^(true|false|yes|no|y|n|0|1)$`),
}

// PatternStrategy scores pairs by semantic-type evidence: the target name
// (or its declared type) implies a type, and the source field's declared
// type or value format must be compatible with it.
type PatternStrategy struct {
	log zerolog.Logger
}

// NewPatternStrategy creates the alias/pattern matcher.
func NewPatternStrategy(log zerolog.Logger) *PatternStrategy {
	return &PatternStrategy{log: log.With().Str("strategy", NamePattern).Logger()}
}

func (s *PatternStrategy) Name() string { return NamePattern }

func (s *PatternStrategy) Score(src source.SourceField, target template.TemplateField) *MatchCandidate {
	targetType, nameSpecificity := s.targetTypeEvidence(target)
	if targetType == "" || targetType == registry.TypeText {
		return nil
	}

	if !s.sourceCompatible(src, targetType) {
		return nil
	}

	// Base 0.75 for a pattern-level match, up to 0.90 for a fully specific
	// target name, plus 0.10 when the source declares the same type.
	score := 0.75 + 0.15*nameSpecificity
	if src.Type == targetType {
		score += 0.10
	}
	if score > 1.0 {
		score = 1.0
	}

	return &MatchCandidate{
		SourceField: src.Name,
		TargetField: target.Name,
		Strategy:    NamePattern,
		Score:       score,
		Rationale:   fmt.Sprintf("source value matches %s pattern for target %q", targetType, target.Name),
	}
}

// targetTypeEvidence determines the semantic type the target field calls
// for, and how specific the naming evidence is.
func (s *PatternStrategy) targetTypeEvidence(target template.TemplateField) (registry.SemanticType, float64) {
	bestType := registry.SemanticType("")
	bestSpecificity := 0.0

	for semanticType, patterns := range namePatterns {
		for _, p := range patterns {
			if p.re.MatchString(registry.NormalizeFieldName(target.Name)) && p.specificity > bestSpecificity {
				bestType = semanticType
				bestSpecificity = p.specificity
			}
		}
	}

	if bestType == "" && target.Type != "" && target.Type != registry.TypeText {
		// Declared type with no naming evidence still counts, at zero
		// specificity bonus.
		return target.Type, 0.0
	}

	return bestType, bestSpecificity
}

func (s *PatternStrategy) sourceCompatible(src source.SourceField, targetType registry.SemanticType) bool {
	if src.Type != "" {
		return src.Type == targetType
	}

	re, ok := valuePatterns[targetType]
	if !ok {
		return false
	}
	return re.MatchString(src.Value)
}
