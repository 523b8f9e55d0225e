// service.go
package mapping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/audit"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/fallback"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/learning"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/mappingcache"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/score"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/source"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/strategy"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
	"github.com/rs/zerolog"
)

// Service is the mapping orchestrator: cache check, strategies, aggregation,
// fallback, audit. Each call is independent; the cache and the learning
// store are the only shared mutable state.
type Service struct {
	cfg        Config
	strategies []strategy.Strategy
	aggregator *score.Aggregator
	cache      *mappingcache.Cache
	learning   *learning.Service
	fallbacks  *fallback.Service
	audit      *audit.Logger
	log        zerolog.Logger

	now func() time.Time
}

// NewService wires the orchestrator. audit may be nil to disable the audit
// trail (tests); cache may be nil to run uncached.
func NewService(
	cfg Config,
	strategies []strategy.Strategy,
	aggregator *score.Aggregator,
	cache *mappingcache.Cache,
	learningSvc *learning.Service,
	fallbackSvc *fallback.Service,
	auditLog *audit.Logger,
	log zerolog.Logger,
) *Service {
	if cfg.Timeout == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		cfg:        cfg,
		strategies: strategies,
		aggregator: aggregator,
		cache:      cache,
		learning:   learningSvc,
		fallbacks:  fallbackSvc,
		audit:      auditLog,
		log:        log.With().Str("component", "mapping_orchestrator").Logger(),
		now:        time.Now,
	}
}

// MapTemplate produces the finalized field mapping for one manufacturer
// template against the available source data.
func (s *Service) MapTemplate(ctx context.Context, tmpl *template.Template, sources []source.SourceField) (*Result, error) {
	if len(tmpl.Fields) > s.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d fields, maximum %d", ErrTemplateTooLarge, len(tmpl.Fields), s.cfg.MaxBatchSize)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := s.now()

	var (
		scored   []score.ScoredMapping
		cacheHit bool
	)
	key := mappingcache.NewKey(tmpl.Manufacturer, tmpl.Signature(), sources)
	if s.cache != nil {
		scored, cacheHit = s.cache.Get(ctx, key)
	}

	if !cacheHit {
		var err error
		scored, err = s.runStrategies(ctx, tmpl, sources)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			// Only strategy/aggregation output is cached; fallback values
			// can be time-dependent and are recomputed on every call.
			s.cache.Put(ctx, key, scored)
		}
	}

	result := s.compose(tmpl, sources, scored, cacheHit)

	s.log.Debug().
		Str("manufacturer", tmpl.Manufacturer).
		Int("fields", len(tmpl.Fields)).
		Int("sources", len(sources)).
		Bool("cache_hit", cacheHit).
		Dur("elapsed", s.now().Sub(started)).
		Msg("Completed template mapping")

	return result, nil
}

// MapStatic produces a defaults-only mapping from the fallback chain,
// bypassing strategies entirely. Used after a timeout when static fallback
// is enabled.
func (s *Service) MapStatic(tmpl *template.Template, sources []source.SourceField) (*Result, error) {
	if !s.cfg.EnableStaticFallback {
		return nil, fmt.Errorf("static fallback mapping is disabled")
	}
	if len(tmpl.Fields) > s.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d fields, maximum %d", ErrTemplateTooLarge, len(tmpl.Fields), s.cfg.MaxBatchSize)
	}

	scored := make([]score.ScoredMapping, len(tmpl.Fields))
	for i, field := range tmpl.Fields {
		scored[i] = score.ScoredMapping{
			TargetField: field.Name,
			Decision:    score.DecisionUnmapped,
			Rationale:   "static mapping, strategies skipped",
		}
	}
	return s.compose(tmpl, sources, scored, false), nil
}

// runStrategies scores every target field concurrently. Output order
// follows the template field order, not completion order.
func (s *Service) runStrategies(ctx context.Context, tmpl *template.Template, sources []source.SourceField) ([]score.ScoredMapping, error) {
	snapshot := s.learning.SnapshotFor(ctx, tmpl.Manufacturer)
	multiplier := snapshot.MultiplierFor

	scored := make([]score.ScoredMapping, len(tmpl.Fields))

	workers := len(tmpl.Fields)
	if workers > s.cfg.QueueThreshold {
		// Large templates are queued through a bounded pool instead of a
		// goroutine per field.
		workers = s.cfg.Workers
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				field := tmpl.Fields[idx]
				candidates := s.scoreField(field, sources)
				scored[idx] = s.aggregator.Aggregate(candidates, field, multiplier)
			}
		}()
	}

	feed := func() bool {
		for i := range tmpl.Fields {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}
	completed := feed()
	close(jobs)
	wg.Wait()

	if !completed || ctx.Err() != nil {
		return nil, ErrMappingTimeout
	}
	return scored, nil
}

// scoreField collects every strategy's opinion about every source field.
// A panicking strategy is logged and treated as having no candidate; it
// never aborts the mapping.
func (s *Service) scoreField(field template.TemplateField, sources []source.SourceField) []strategy.MatchCandidate {
	candidates := make([]strategy.MatchCandidate, 0, len(sources))
	for _, src := range sources {
		for _, strat := range s.strategies {
			if candidate := s.safeScore(strat, src, field); candidate != nil {
				candidates = append(candidates, *candidate)
			}
		}
	}
	return candidates
}

func (s *Service) safeScore(strat strategy.Strategy, src source.SourceField, field template.TemplateField) (candidate *strategy.MatchCandidate) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("strategy", strat.Name()).
				Str("source_field", src.Name).
				Str("target_field", field.Name).
				Interface("panic", r).
				Msg("Strategy failed, excluding it from this pair")
			candidate = nil
		}
	}()
	return strat.Score(src, field)
}

// compose turns shape-level scoring into the final per-field result: it
// fills in current source values, runs the fallback chain for unmapped
// fields and assembles the report lists.
func (s *Service) compose(tmpl *template.Template, sources []source.SourceField, scored []score.ScoredMapping, cacheHit bool) *Result {
	sourceValues := make(map[string]string, len(sources))
	for _, src := range sources {
		sourceValues[registry.NormalizeFieldName(src.Name)] = src.Value
	}

	result := &Result{
		Manufacturer:   tmpl.Manufacturer,
		Mappings:       make([]FieldMapping, 0, len(tmpl.Fields)),
		UnmappedFields: []string{},
		NeedsReview:    []string{},
		MissingData:    []string{},
		CacheHit:       cacheHit,
	}

	// The fallback lookup sees all current source data plus strategy-mapped
	// target values, so derived rules can compose from source components
	// that never mapped to a target field of their own. Mapped target
	// values win on name collisions.
	composeValues := make(map[string]string, len(sourceValues)+len(scored))
	for name, value := range sourceValues {
		composeValues[name] = value
	}
	for _, sm := range scored {
		if sm.Decision == score.DecisionAutoAccept || sm.Decision == score.DecisionNeedsReview {
			composeValues[registry.NormalizeFieldName(sm.TargetField)] = sourceValues[registry.NormalizeFieldName(sm.SourceField)]
		}
	}

	now := s.now()
	for i, field := range tmpl.Fields {
		sm := scored[i]
		fm := FieldMapping{
			TargetField: field.Name,
			SourceField: sm.SourceField,
			Confidence:  sm.CombinedScore,
			Decision:    sm.Decision,
			Strategy:    sm.Strategy,
			Rationale:   sm.Rationale,
		}

		switch sm.Decision {
		case score.DecisionAutoAccept, score.DecisionNeedsReview:
			fm.Value = sourceValues[registry.NormalizeFieldName(sm.SourceField)]
			if sm.Decision == score.DecisionNeedsReview {
				result.NeedsReview = append(result.NeedsReview, field.Name)
			}

		case score.DecisionUnmapped:
			if resolution := s.fallbacks.Resolve(field, tmpl.Fallbacks, composeValues, now); resolution != nil {
				fm.Value = resolution.Value
				fm.Confidence = 1.0
				fm.Decision = score.DecisionAutoAccept
				fm.Strategy = "fallback_" + string(resolution.Kind)
				fm.SourceField = ""
				fm.Rationale = resolution.Rationale
				composeValues[registry.NormalizeFieldName(field.Name)] = resolution.Value
			} else if field.Required {
				// A required field with no match and no fallback is a
				// business condition, reported as missing data, never
				// silently dropped.
				fm.Decision = score.DecisionNeedsManualInput
				fm.SourceField = ""
				fm.Confidence = 0
				result.MissingData = append(result.MissingData, field.Name)
			} else {
				fm.SourceField = ""
				fm.Confidence = 0
				result.UnmappedFields = append(result.UnmappedFields, field.Name)
			}
		}

		result.Mappings = append(result.Mappings, fm)

		if s.audit != nil {
			s.audit.Record(audit.Entry{
				Manufacturer: tmpl.Manufacturer,
				TargetField:  fm.TargetField,
				SourceField:  fm.SourceField,
				Value:        fm.Value,
				Confidence:   fm.Confidence,
				Decision:     string(fm.Decision),
				Strategy:     fm.Strategy,
				CacheHit:     cacheHit,
			})
		}
	}

	result.MappingNotes = fmt.Sprintf("%d of %d fields mapped, %d need review, %d missing",
		len(tmpl.Fields)-len(result.UnmappedFields)-len(result.MissingData),
		len(tmpl.Fields), len(result.NeedsReview), len(result.MissingData))

	return result
}

// DefaultStrategies returns the production strategy set in priority order.
func DefaultStrategies(reg *registry.Registry, log zerolog.Logger) []strategy.Strategy {
	return []strategy.Strategy{
		strategy.NewExactStrategy(reg),
		strategy.NewSemanticStrategy(),
		strategy.NewPatternStrategy(log),
		strategy.NewFuzzyStrategy(),
	}
}
