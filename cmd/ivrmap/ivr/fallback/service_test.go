package fallback

import (
	"testing"
	"time"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func TestResolveDefaultToday(t *testing.T) {
	service := NewService(zerolog.Nop())
	target := template.TemplateField{Name: "Request Date", Type: registry.TypeDate}
	rules := []template.FallbackRule{
		{Field: "Request Date", Kind: template.FallbackDefault, Value: "today"},
	}

	resolution := service.Resolve(target, rules, nil, fixedNow)
	require.NotNil(t, resolution)
	assert.Equal(t, "2026-03-15", resolution.Value)
	assert.Equal(t, template.FallbackDefault, resolution.Kind)
}

func TestResolveDefaultConstant(t *testing.T) {
	service := NewService(zerolog.Nop())
	target := template.TemplateField{Name: "Place of Service"}
	rules := []template.FallbackRule{
		{Field: "Place of Service", Kind: template.FallbackDefault, Value: "11 - Office"},
	}

	resolution := service.Resolve(target, rules, nil, fixedNow)
	require.NotNil(t, resolution)
	assert.Equal(t, "11 - Office", resolution.Value)
}

func TestResolveDerivedJoinsMappedValues(t *testing.T) {
	service := NewService(zerolog.Nop())
	target := template.TemplateField{Name: "Patient Address"}
	rules := []template.FallbackRule{
		{
			Field:     "Patient Address",
			Kind:      template.FallbackDerived,
			Compose:   []string{"Street", "City", "State", "Zip"},
			Separator: ", ",
		},
	}
	mapped := map[string]string{
		"street": "12 Oak Ln",
		"city":   "Dayton",
		"zip":    "45402",
	}

	resolution := service.Resolve(target, rules, mapped, fixedNow)
	require.NotNil(t, resolution)
	// Missing components are skipped, present ones keep compose order.
	assert.Equal(t, "12 Oak Ln, Dayton, 45402", resolution.Value)
	assert.Equal(t, template.FallbackDerived, resolution.Kind)
}

func TestResolveDerivedNoComponentsAvailable(t *testing.T) {
	service := NewService(zerolog.Nop())
	target := template.TemplateField{Name: "Patient Address"}
	rules := []template.FallbackRule{
		{Field: "Patient Address", Kind: template.FallbackDerived, Compose: []string{"Street", "City"}},
	}

	assert.Nil(t, service.Resolve(target, rules, map[string]string{}, fixedNow))
}

func TestResolveConditional(t *testing.T) {
	service := NewService(zerolog.Nop())
	target := template.TemplateField{Name: "Signature Date", Type: registry.TypeDate}
	rules := []template.FallbackRule{
		{Field: "Signature Date", Kind: template.FallbackConditional, Value: "today", WhenField: "Physician Name"},
	}

	// Condition not met: no resolution.
	assert.Nil(t, service.Resolve(target, rules, map[string]string{}, fixedNow))

	// Condition met: the expression resolves against the provided clock.
	mapped := map[string]string{"physician_name": "Dr. Jane Smith"}
	resolution := service.Resolve(target, rules, mapped, fixedNow)
	require.NotNil(t, resolution)
	assert.Equal(t, "2026-03-15", resolution.Value)
	assert.Equal(t, template.FallbackConditional, resolution.Kind)
}

func TestResolveFirstMatchingRuleWins(t *testing.T) {
	service := NewService(zerolog.Nop())
	target := template.TemplateField{Name: "Signature Date"}
	rules := []template.FallbackRule{
		{Field: "Signature Date", Kind: template.FallbackConditional, Value: "today", WhenField: "Physician Name"},
		{Field: "Signature Date", Kind: template.FallbackDefault, Value: "pending"},
	}

	// The conditional rule cannot fire, so the later default takes over.
	resolution := service.Resolve(target, rules, map[string]string{}, fixedNow)
	require.NotNil(t, resolution)
	assert.Equal(t, "pending", resolution.Value)

	// When the earlier rule fires, later rules never run.
	resolution = service.Resolve(target, rules, map[string]string{"physician_name": "Dr. Jane Smith"}, fixedNow)
	require.NotNil(t, resolution)
	assert.Equal(t, "2026-03-15", resolution.Value)
}

func TestResolveIgnoresRulesForOtherFields(t *testing.T) {
	service := NewService(zerolog.Nop())
	target := template.TemplateField{Name: "Signature Date"}
	rules := []template.FallbackRule{
		{Field: "Request Date", Kind: template.FallbackDefault, Value: "today"},
	}

	assert.Nil(t, service.Resolve(target, rules, nil, fixedNow))
}
