package mapping

import (
	"context"
	"testing"
	"time"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/fallback"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/learning"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/mappingcache"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/score"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/strategy"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, cfg Config, cache *mappingcache.Cache) *Service {
	t.Helper()

	log := zerolog.Nop()
	reg, err := registry.NewRegistry(registry.DefaultFields(), log)
	require.NoError(t, err)
	learningSvc := learning.NewService(learning.NewMemoryRepository(learning.DefaultConfig()), learning.DefaultConfig(), log)

	return NewService(
		cfg,
		DefaultStrategies(reg, log),
		score.NewAggregator(score.DefaultConfig(), log),
		cache,
		learningSvc,
		fallback.NewService(log),
		nil,
		log,
	)
}

func woundCareTemplate() *template.Template {
	return &template.Template{
		Manufacturer: "ACZ_Distribution",
		Fields: []template.TemplateField{
			{Name: "Physician Name", Type: registry.TypeText, Required: true},
			{Name: "Member ID", Type: registry.TypeText, Required: true},
			{Name: "Request Date", Type: registry.TypeDate, Required: false},
			{Name: "Fax Line", Type: registry.TypePhone, Required: false},
		},
		Fallbacks: []template.FallbackRule{
			{Field: "Request Date", Kind: template.FallbackDefault, Value: "today"},
		},
	}
}

func woundCareSources() []source.SourceField {
	return []source.SourceField{
		{Name: "physician_name", Value: "Dr. Jane Smith", Provenance: source.ProvenanceFHIR, Type: registry.TypeText},
		{Name: "wound_location", Value: "left heel", Provenance: source.ProvenanceFHIR, Type: registry.TypeText},
	}
}

func mappingFor(t *testing.T, result *Result, targetField string) FieldMapping {
	t.Helper()
	for _, fm := range result.Mappings {
		if fm.TargetField == targetField {
			return fm
		}
	}
	t.Fatalf("no mapping for target field %q", targetField)
	return FieldMapping{}
}

func TestMapTemplateEndToEnd(t *testing.T) {
	service := newTestService(t, DefaultConfig(), nil)
	service.now = func() time.Time { return time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC) }

	result, err := service.MapTemplate(context.Background(), woundCareTemplate(), woundCareSources())
	require.NoError(t, err)
	require.Len(t, result.Mappings, 4)
	assert.Equal(t, "ACZ_Distribution", result.Manufacturer)
	assert.False(t, result.CacheHit)

	// physician_name normalizes to the same key as "Physician Name": a raw
	// exact match at full confidence.
	physician := mappingFor(t, result, "Physician Name")
	assert.Equal(t, "physician_name", physician.SourceField)
	assert.Equal(t, "Dr. Jane Smith", physician.Value)
	assert.Equal(t, 1.0, physician.Confidence)
	assert.Equal(t, score.DecisionAutoAccept, physician.Decision)
	assert.Equal(t, strategy.NameExact, physician.Strategy)

	// Nothing resembles "Member ID" and it is required: surface it for
	// manual entry instead of dropping it.
	member := mappingFor(t, result, "Member ID")
	assert.Equal(t, score.DecisionNeedsManualInput, member.Decision)
	assert.Empty(t, member.Value)
	assert.Contains(t, result.MissingData, "Member ID")

	// Request Date resolves through the configured default.
	requestDate := mappingFor(t, result, "Request Date")
	assert.Equal(t, "2026-03-15", requestDate.Value)
	assert.Equal(t, 1.0, requestDate.Confidence)
	assert.Equal(t, score.DecisionAutoAccept, requestDate.Decision)
	assert.Equal(t, "fallback_default", requestDate.Strategy)

	// Optional field, no match, no fallback: reported unmapped.
	assert.Contains(t, result.UnmappedFields, "Fax Line")
	assert.NotContains(t, result.MissingData, "Fax Line")
}

func TestMapTemplateDeterministic(t *testing.T) {
	service := newTestService(t, DefaultConfig(), nil)
	service.now = func() time.Time { return time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC) }

	first, err := service.MapTemplate(context.Background(), woundCareTemplate(), woundCareSources())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		next, err := service.MapTemplate(context.Background(), woundCareTemplate(), woundCareSources())
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}

func TestMapTemplateOutputFollowsTemplateOrder(t *testing.T) {
	service := newTestService(t, DefaultConfig(), nil)
	tmpl := woundCareTemplate()

	result, err := service.MapTemplate(context.Background(), tmpl, woundCareSources())
	require.NoError(t, err)

	require.Len(t, result.Mappings, len(tmpl.Fields))
	for i, field := range tmpl.Fields {
		assert.Equal(t, field.Name, result.Mappings[i].TargetField)
	}
}

func TestMapTemplateCacheHitUsesCurrentValues(t *testing.T) {
	cache := mappingcache.New(mappingcache.DefaultConfig(), nil, zerolog.Nop())
	defer cache.Stop()

	service := newTestService(t, DefaultConfig(), cache)
	service.now = func() time.Time { return time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC) }

	first, err := service.MapTemplate(context.Background(), woundCareTemplate(), woundCareSources())
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	// Same shape, different patient: scoring comes from cache, values from
	// the current request.
	sources := woundCareSources()
	sources[0].Value = "Dr. John Doe"
	second, err := service.MapTemplate(context.Background(), woundCareTemplate(), sources)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, "Dr. John Doe", mappingFor(t, second, "Physician Name").Value)

	// Time-dependent fallbacks are never cached: a later clock yields a
	// later default even on a cache hit.
	service.now = func() time.Time { return time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC) }
	third, err := service.MapTemplate(context.Background(), woundCareTemplate(), sources)
	require.NoError(t, err)
	assert.True(t, third.CacheHit)
	assert.Equal(t, "2026-03-16", mappingFor(t, third, "Request Date").Value)
}

func TestMapTemplateCacheMissOnDifferentShape(t *testing.T) {
	cache := mappingcache.New(mappingcache.DefaultConfig(), nil, zerolog.Nop())
	defer cache.Stop()
	service := newTestService(t, DefaultConfig(), cache)

	_, err := service.MapTemplate(context.Background(), woundCareTemplate(), woundCareSources())
	require.NoError(t, err)

	// An extra source field changes the shape and must not reuse the entry.
	sources := append(woundCareSources(), source.SourceField{
		Name: "member_id", Value: "XG4411287", Provenance: source.ProvenanceOCR, Type: registry.TypeText,
	})
	result, err := service.MapTemplate(context.Background(), woundCareTemplate(), sources)
	require.NoError(t, err)
	assert.False(t, result.CacheHit)
	assert.Equal(t, "XG4411287", mappingFor(t, result, "Member ID").Value)
}

func TestMapTemplateTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBatchSize = 2
	service := newTestService(t, cfg, nil)

	_, err := service.MapTemplate(context.Background(), woundCareTemplate(), woundCareSources())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateTooLarge)
}

type slowStrategy struct{ delay time.Duration }

func (s slowStrategy) Name() string { return "slow" }

func (s slowStrategy) Score(src source.SourceField, target template.TemplateField) *strategy.MatchCandidate {
	time.Sleep(s.delay)
	return nil
}

func TestMapTemplateTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Millisecond
	service := newTestService(t, cfg, nil)
	service.strategies = []strategy.Strategy{slowStrategy{delay: 50 * time.Millisecond}}

	_, err := service.MapTemplate(context.Background(), woundCareTemplate(), woundCareSources())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMappingTimeout)
}

type panickingStrategy struct{}

func (panickingStrategy) Name() string { return "panicky" }

func (panickingStrategy) Score(source.SourceField, template.TemplateField) *strategy.MatchCandidate {
	panic("boom")
}

func TestMapTemplateSurvivesPanickingStrategy(t *testing.T) {
	service := newTestService(t, DefaultConfig(), nil)
	service.strategies = append([]strategy.Strategy{panickingStrategy{}}, service.strategies...)

	result, err := service.MapTemplate(context.Background(), woundCareTemplate(), woundCareSources())
	require.NoError(t, err)

	physician := mappingFor(t, result, "Physician Name")
	assert.Equal(t, score.DecisionAutoAccept, physician.Decision)
	assert.Equal(t, strategy.NameExact, physician.Strategy)
}

func TestMapStaticDefaultsOnly(t *testing.T) {
	service := newTestService(t, DefaultConfig(), nil)
	service.now = func() time.Time { return time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC) }

	result, err := service.MapStatic(woundCareTemplate(), woundCareSources())
	require.NoError(t, err)

	// Strategies never ran: only the fallback chain fills anything in.
	requestDate := mappingFor(t, result, "Request Date")
	assert.Equal(t, "2026-03-15", requestDate.Value)
	assert.Equal(t, "fallback_default", requestDate.Strategy)

	assert.Contains(t, result.MissingData, "Physician Name")
	assert.Contains(t, result.MissingData, "Member ID")
	assert.Contains(t, result.UnmappedFields, "Fax Line")
}

func TestMapTemplateDerivedFallbackFromSourceData(t *testing.T) {
	service := newTestService(t, DefaultConfig(), nil)

	// The address components exist only as source data; no template field
	// maps them. The derived rule must still see them.
	tmpl := &template.Template{
		Manufacturer: "ACZ_Distribution",
		Fields: []template.TemplateField{
			{Name: "Patient Address", Type: registry.TypeText, Required: true},
		},
		Fallbacks: []template.FallbackRule{
			{
				Field:   "Patient Address",
				Kind:    template.FallbackDerived,
				Compose: []string{"patient_address", "patient_city", "patient_state", "patient_zip"},
			},
		},
	}
	sources := []source.SourceField{
		{Name: "patient_city", Value: "Dayton", Provenance: source.ProvenanceFHIR, Type: registry.TypeText},
		{Name: "patient_state", Value: "OH", Provenance: source.ProvenanceFHIR, Type: registry.TypeText},
		{Name: "patient_zip", Value: "45402", Provenance: source.ProvenanceFHIR, Type: registry.TypeZip},
	}

	result, err := service.MapTemplate(context.Background(), tmpl, sources)
	require.NoError(t, err)

	address := mappingFor(t, result, "Patient Address")
	assert.Equal(t, "Dayton, OH, 45402", address.Value)
	assert.Equal(t, score.DecisionAutoAccept, address.Decision)
	assert.Equal(t, "fallback_derived", address.Strategy)
	assert.Empty(t, result.MissingData)
}

func TestMapTemplateDerivedFallbackPrefersMappedValues(t *testing.T) {
	service := newTestService(t, DefaultConfig(), nil)

	// "City" maps from the raw source "city"; the derived rule composes
	// through the target name and must pick up the mapped value, not fall
	// back to nothing.
	tmpl := &template.Template{
		Manufacturer: "ACZ_Distribution",
		Fields: []template.TemplateField{
			{Name: "City", Type: registry.TypeText, Required: true},
			{Name: "Patient Address", Type: registry.TypeText, Required: true},
		},
		Fallbacks: []template.FallbackRule{
			{
				Field:   "Patient Address",
				Kind:    template.FallbackDerived,
				Compose: []string{"City", "patient_zip"},
			},
		},
	}
	sources := []source.SourceField{
		{Name: "city", Value: "Dayton", Provenance: source.ProvenanceForm, Type: registry.TypeText},
		{Name: "patient_zip", Value: "45402", Provenance: source.ProvenanceForm, Type: registry.TypeZip},
	}

	result, err := service.MapTemplate(context.Background(), tmpl, sources)
	require.NoError(t, err)
	assert.Equal(t, "Dayton, 45402", mappingFor(t, result, "Patient Address").Value)
}

func TestMapStaticDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableStaticFallback = false
	service := newTestService(t, cfg, nil)

	_, err := service.MapStatic(woundCareTemplate(), nil)
	assert.Error(t, err)
}

func TestMapStaticTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBatchSize = 2
	service := newTestService(t, cfg, nil)

	_, err := service.MapStatic(woundCareTemplate(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTemplateTooLarge)
}

func TestMapTemplateWorkerPoolLargeTemplate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueThreshold = 5
	cfg.Workers = 3
	service := newTestService(t, cfg, nil)

	fields := make([]template.TemplateField, 0, 20)
	for _, name := range []string{
		"Patient Name", "Patient DOB", "Member ID", "Group Number", "Payer",
		"Physician Name", "NPI", "Facility Name", "Fax", "Phone",
		"Street", "City", "State", "Zip", "Wound Type",
		"Wound Location", "Wound Size", "ICD-10", "Email", "Place of Service",
	} {
		fields = append(fields, template.TemplateField{Name: name, Type: registry.TypeText})
	}
	tmpl := &template.Template{Manufacturer: "Advanced_Health", Fields: fields}

	result, err := service.MapTemplate(context.Background(), tmpl, woundCareSources())
	require.NoError(t, err)
	require.Len(t, result.Mappings, 20)
	for i, field := range fields {
		assert.Equal(t, field.Name, result.Mappings[i].TargetField)
	}
}
