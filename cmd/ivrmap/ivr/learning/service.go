// service.go
package learning

import (
	"context"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/rs/zerolog"
)

// Service exposes the learning loop to the mapping pipeline. Reads never
// fail a mapping request: when the store is unavailable the multiplier
// degrades to neutral. Writes are best-effort.
type Service struct {
	repo Repository
	cfg  Config
	log  zerolog.Logger
}

// NewService creates the learning service.
func NewService(repo Repository, cfg Config, log zerolog.Logger) *Service {
	if cfg.BoostFactor == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		repo: repo,
		cfg:  cfg,
		log:  log.With().Str("component", "learning_service").Logger(),
	}
}

// Snapshot is an immutable view of a manufacturer's learning records, taken
// once per mapping run so scoring stays reproducible within the run.
type Snapshot struct {
	multipliers map[string]float64
}

// MultiplierFor returns the learned confidence multiplier for a pair, or
// 1.0 while the pair is below the minimum usage count or unknown.
func (s *Snapshot) MultiplierFor(sourceField, targetField string) float64 {
	if s == nil || s.multipliers == nil {
		return 1.0
	}
	if multiplier, ok := s.multipliers[pairKey(sourceField, targetField)]; ok {
		return multiplier
	}
	return 1.0
}

func pairKey(sourceField, targetField string) string {
	return registry.NormalizeFieldName(sourceField) + "\x00" + registry.NormalizeFieldName(targetField)
}

// SnapshotFor loads the manufacturer's learning records. Store failures
// degrade to a neutral snapshot with a logged warning; they never block or
// fail the mapping request.
func (s *Service) SnapshotFor(ctx context.Context, manufacturer string) *Snapshot {
	records, err := s.repo.ListByManufacturer(ctx, manufacturer)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("manufacturer", manufacturer).
			Msg("Learning store unavailable, using neutral multipliers")
		return &Snapshot{}
	}

	multipliers := make(map[string]float64, len(records))
	for _, record := range records {
		if record.UsageCount < s.cfg.MinUsage {
			continue
		}
		multipliers[pairKey(record.SourceField, record.TargetField)] = record.Confidence
	}

	return &Snapshot{multipliers: multipliers}
}

// RecordOutcome persists one accepted/rejected mapping decision. Failures
// are logged and dropped rather than propagated to the caller.
func (s *Service) RecordOutcome(ctx context.Context, sourceField, targetField, manufacturer string, accepted bool) {
	if err := s.repo.RecordOutcome(ctx, sourceField, targetField, manufacturer, accepted); err != nil {
		s.log.Warn().
			Err(err).
			Str("source_field", sourceField).
			Str("target_field", targetField).
			Str("manufacturer", manufacturer).
			Msg("Dropped mapping outcome, learning store unavailable")
		return
	}

	s.log.Debug().
		Str("source_field", sourceField).
		Str("target_field", targetField).
		Str("manufacturer", manufacturer).
		Bool("accepted", accepted).
		Msg("Recorded mapping outcome")
}
