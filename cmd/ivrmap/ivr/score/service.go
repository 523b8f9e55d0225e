// service.go
package score

import (
	"fmt"
	"sort"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/strategy"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
	"github.com/rs/zerolog"
)

// Aggregator combines per-strategy candidates into a single ranked verdict
// per target field. It is deterministic: identical inputs always produce
// identical output.
type Aggregator struct {
	cfg Config
	log zerolog.Logger
}

// NewAggregator creates an aggregator with the given boosts and thresholds.
func NewAggregator(cfg Config, log zerolog.Logger) *Aggregator {
	if cfg.AutoAcceptThreshold == 0 {
		cfg = DefaultConfig()
	}
	return &Aggregator{
		cfg: cfg,
		log: log.With().Str("component", "aggregator").Logger(),
	}
}

// candidateRanking is the per-source-field best boosted candidate.
type candidateRanking struct {
	sourceKey string
	candidate strategy.MatchCandidate
	boosted   float64
}

// Aggregate ranks all candidates for one target field and decides its
// disposition. Candidates must be non-nil; strategies with no opinion are
// excluded before this point, while zero scores participate and can still
// win when nothing scores higher.
func (a *Aggregator) Aggregate(candidates []strategy.MatchCandidate, target template.TemplateField, multiplier MultiplierFunc) ScoredMapping {
	if multiplier == nil {
		multiplier = NeutralMultiplier
	}

	if len(candidates) == 0 {
		return ScoredMapping{
			TargetField: target.Name,
			Decision:    DecisionUnmapped,
			Rationale:   "no strategy produced a candidate",
		}
	}

	// Group by source field, keeping the single highest-boosted candidate
	// per source. Taking the max rather than a sum keeps several weak
	// signals from drowning out one strong one.
	bySource := make(map[string]*candidateRanking)
	for _, candidate := range candidates {
		boosted := candidate.Score * a.boost(candidate.Strategy)
		if boosted > 1.0 {
			boosted = 1.0
		}

		key := registry.NormalizeFieldName(candidate.SourceField)
		current, exists := bySource[key]
		if !exists {
			bySource[key] = &candidateRanking{sourceKey: key, candidate: candidate, boosted: boosted}
			continue
		}
		if boosted > current.boosted ||
			(boosted == current.boosted && priorityOf(candidate.Strategy) < priorityOf(current.candidate.Strategy)) {
			current.candidate = candidate
			current.boosted = boosted
		}
	}

	rankings := make([]*candidateRanking, 0, len(bySource))
	for _, ranking := range bySource {
		final := ranking.boosted * multiplier(ranking.candidate.SourceField, target.Name)
		if final > 1.0 {
			final = 1.0
		}
		if final < 0 {
			final = 0
		}
		ranking.boosted = final
		rankings = append(rankings, ranking)
	}

	// Deterministic order: score desc, strategy priority, then source name.
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].boosted != rankings[j].boosted {
			return rankings[i].boosted > rankings[j].boosted
		}
		pi, pj := priorityOf(rankings[i].candidate.Strategy), priorityOf(rankings[j].candidate.Strategy)
		if pi != pj {
			return pi < pj
		}
		return rankings[i].sourceKey < rankings[j].sourceKey
	})

	winner := rankings[0]
	mapped := ScoredMapping{
		TargetField:   target.Name,
		SourceField:   winner.candidate.SourceField,
		CombinedScore: winner.boosted,
		Strategy:      winner.candidate.Strategy,
		Contributing:  candidatesFor(candidates, winner.candidate.SourceField),
		Rationale:     winner.candidate.Rationale,
		Decision:      a.decide(winner.boosted, winner.candidate.Strategy),
	}

	if mapped.Decision == DecisionUnmapped {
		mapped.Rationale = fmt.Sprintf("best candidate %q scored %.3f, below %s threshold",
			winner.candidate.SourceField, winner.boosted, winner.candidate.Strategy)
	}

	a.log.Debug().
		Str("target_field", target.Name).
		Str("source_field", mapped.SourceField).
		Float64("combined_score", mapped.CombinedScore).
		Str("strategy", mapped.Strategy).
		Str("decision", string(mapped.Decision)).
		Msg("Aggregated candidates for target field")

	return mapped
}

func (a *Aggregator) boost(strategyName string) float64 {
	if boost, ok := a.cfg.Boosts[strategyName]; ok {
		return boost
	}
	return 1.0
}

func (a *Aggregator) decide(finalScore float64, strategyName string) Decision {
	if finalScore >= a.cfg.AutoAcceptThreshold {
		return DecisionAutoAccept
	}
	threshold, ok := a.cfg.ReviewThresholds[strategyName]
	if !ok {
		threshold = 0.75
	}
	if finalScore >= threshold {
		return DecisionNeedsReview
	}
	return DecisionUnmapped
}

func priorityOf(strategyName string) int {
	if priority, ok := strategyPriority[strategyName]; ok {
		return priority
	}
	return len(strategyPriority)
}

// candidatesFor filters the contributing candidates down to the winning
// source field, preserving input order.
func candidatesFor(candidates []strategy.MatchCandidate, sourceField string) []strategy.MatchCandidate {
	key := registry.NormalizeFieldName(sourceField)
	contributing := make([]strategy.MatchCandidate, 0, 4)
	for _, candidate := range candidates {
		if registry.NormalizeFieldName(candidate.SourceField) == key {
			contributing = append(contributing, candidate)
		}
	}
	return contributing
}
