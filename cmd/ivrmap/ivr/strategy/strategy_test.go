package strategy

import (
	"testing"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.NewRegistry(registry.DefaultFields(), zerolog.Nop())
	require.NoError(t, err)
	return reg
}

func TestExactStrategyRawNameMatch(t *testing.T) {
	exact := NewExactStrategy(testRegistry(t))

	src := source.SourceField{Name: "physician_name", Value: "Dr. Jane Smith", Provenance: source.ProvenanceForm}
	target := template.TemplateField{Name: "Physician Name", Type: registry.TypeText}

	candidate := exact.Score(src, target)
	require.NotNil(t, candidate)
	assert.Equal(t, 1.0, candidate.Score)
	assert.Equal(t, NameExact, candidate.Strategy)
}

func TestExactStrategyCanonicalMatch(t *testing.T) {
	exact := NewExactStrategy(testRegistry(t))

	// "prov_npi" and "NPI" are different raw names but share a canonical
	// identity through the alias table.
	src := source.SourceField{Name: "prov_npi", Value: "1234567890"}
	target := template.TemplateField{Name: "NPI", Type: registry.TypeNPI}

	candidate := exact.Score(src, target)
	require.NotNil(t, candidate)
	assert.Equal(t, 1.0, candidate.Score)
}

func TestExactStrategyNoOpinion(t *testing.T) {
	exact := NewExactStrategy(testRegistry(t))

	src := source.SourceField{Name: "wound_depth_reading", Value: "3"}
	target := template.TemplateField{Name: "Insurance Carrier"}

	assert.Nil(t, exact.Score(src, target))
}

func TestPatternStrategyNPI(t *testing.T) {
	pattern := NewPatternStrategy(zerolog.Nop())

	// Ten digits against an unambiguous npi target name: 0.75 base plus
	// the full 0.15 name-specificity bonus.
	src := source.SourceField{Name: "prov_npi", Value: "1234567890", Provenance: source.ProvenanceOCR}
	target := template.TemplateField{Name: "NPI", Type: registry.TypeNPI}

	candidate := pattern.Score(src, target)
	require.NotNil(t, candidate)
	assert.InDelta(t, 0.90, candidate.Score, 1e-9)
}

func TestPatternStrategyDeclaredTypeBonus(t *testing.T) {
	pattern := NewPatternStrategy(zerolog.Nop())

	src := source.SourceField{Name: "prov_npi", Value: "1234567890", Type: registry.TypeNPI}
	target := template.TemplateField{Name: "NPI", Type: registry.TypeNPI}

	candidate := pattern.Score(src, target)
	require.NotNil(t, candidate)
	assert.InDelta(t, 1.0, candidate.Score, 1e-9)
}

func TestPatternStrategyRejectsIncompatibleValue(t *testing.T) {
	pattern := NewPatternStrategy(zerolog.Nop())

	src := source.SourceField{Name: "prov_npi", Value: "not-a-number"}
	target := template.TemplateField{Name: "NPI", Type: registry.TypeNPI}

	assert.Nil(t, pattern.Score(src, target))
}

func TestPatternStrategyNoTypeEvidence(t *testing.T) {
	pattern := NewPatternStrategy(zerolog.Nop())

	// Plain text targets carry no pattern evidence at all.
	src := source.SourceField{Name: "notes", Value: "hello"}
	target := template.TemplateField{Name: "Comments", Type: registry.TypeText}

	assert.Nil(t, pattern.Score(src, target))
}

func TestSemanticStrategySynonyms(t *testing.T) {
	semantic := NewSemanticStrategy()

	src := source.SourceField{Name: "provider_phone", Value: "555-867-5309"}
	target := template.TemplateField{Name: "Physician Phone"}

	candidate := semantic.Score(src, target)
	require.NotNil(t, candidate)
	// provider→physician and phone→phone: identical expanded token sets.
	assert.Equal(t, 1.0, candidate.Score)
}

func TestSemanticStrategyZeroIsAnOpinion(t *testing.T) {
	semantic := NewSemanticStrategy()

	src := source.SourceField{Name: "wound_size", Value: "2x3"}
	target := template.TemplateField{Name: "Member ID"}

	candidate := semantic.Score(src, target)
	require.NotNil(t, candidate, "disjoint token sets are a zero score, not an abstention")
	assert.Equal(t, 0.0, candidate.Score)
}

func TestFuzzyStrategyComposite(t *testing.T) {
	fuzzy := NewFuzzyStrategy()

	src := source.SourceField{Name: "patient_dob", Value: "1970-01-01"}
	target := template.TemplateField{Name: "Patient DOB"}

	candidate := fuzzy.Score(src, target)
	require.NotNil(t, candidate)
	assert.InDelta(t, 1.0, candidate.Score, 1e-9)

	near := fuzzy.Score(source.SourceField{Name: "patient_date_of_birth"}, target)
	require.NotNil(t, near)
	assert.Greater(t, near.Score, 0.5)
	assert.Less(t, near.Score, 1.0)
}

func TestFuzzyStrategyOCRPrior(t *testing.T) {
	fuzzy := NewFuzzyStrategy()
	confidence := 0.6
	target := template.TemplateField{Name: "Patient DOB"}

	plain := fuzzy.Score(source.SourceField{Name: "patient_dob", Provenance: source.ProvenanceForm}, target)
	ocr := fuzzy.Score(source.SourceField{Name: "patient_dob", Provenance: source.ProvenanceOCR, Confidence: &confidence}, target)

	require.NotNil(t, plain)
	require.NotNil(t, ocr)
	assert.InDelta(t, plain.Score*confidence, ocr.Score, 1e-9)
}
