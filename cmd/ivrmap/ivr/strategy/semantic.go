package strategy

import (
	"fmt"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
)

// synonymGroups lists tokens that mean the same thing across clinical,
// demographic and insurance vocabularies. Each group's first entry is the
// representative that tokens normalize to before overlap scoring.
var synonymGroups = [][]string{
	{"physician", "provider", "doctor", "prescriber", "practitioner", "md"},
	{"patient", "member", "subscriber", "beneficiary", "pt"},
	{"dob", "birthdate", "birth", "born"},
	{"phone", "tel", "telephone", "mobile", "cell"},
	{"address", "addr", "street"},
	{"payer", "insurance", "carrier", "plan", "insurer"},
	{"zip", "postal"},
	{"name", "fullname"},
	{"facility", "practice", "clinic", "site", "office"},
	{"date", "day"},
	{"number", "no", "num", "id", "identifier"},
	{"diagnosis", "dx", "icd10", "icd"},
	{"procedure", "cpt", "hcpcs"},
	{"wound", "ulcer", "lesion"},
	{"signature", "sign", "signed"},
	{"request", "order", "submission"},
	{"service", "treatment", "visit"},
	{"fax", "facsimile"},
	{"group", "grp"},
	{"primary", "main"},
	{"secondary", "other"},
}

var synonymIndex = buildSynonymIndex()

func buildSynonymIndex() map[string]string {
	index := make(map[string]string)
	for _, group := range synonymGroups {
		representative := group[0]
		for _, token := range group {
			index[token] = representative
		}
	}
	return index
}

// SemanticStrategy scores pairs by synonym-expanded token overlap, so
// "provider phone" and "physician_phone" compare as equal token sets.
type SemanticStrategy struct{}

// NewSemanticStrategy creates the semantic matcher.
func NewSemanticStrategy() *SemanticStrategy {
	return &SemanticStrategy{}
}

func (s *SemanticStrategy) Name() string { return NameSemantic }

func (s *SemanticStrategy) Score(src source.SourceField, target template.TemplateField) *MatchCandidate {
	srcTokens := expandTokens(tokenize(src.Name))
	targetTokens := expandTokens(tokenize(target.Name))
	if len(srcTokens) == 0 || len(targetTokens) == 0 {
		return nil
	}

	// A zero overlap is still an opinion about the pair, not an abstention.
	score := tokenSetSimilarity(srcTokens, targetTokens)

	return &MatchCandidate{
		SourceField: src.Name,
		TargetField: target.Name,
		Strategy:    NameSemantic,
		Score:       score,
		Rationale:   fmt.Sprintf("synonym-expanded token overlap %.2f", score),
	}
}

// expandTokens replaces each token with its synonym-group representative.
func expandTokens(tokens []string) []string {
	expanded := make([]string, len(tokens))
	for i, token := range tokens {
		if representative, ok := synonymIndex[token]; ok {
			expanded[i] = representative
		} else {
			expanded[i] = token
		}
	}
	return expanded
}
