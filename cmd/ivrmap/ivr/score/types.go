// types.go
package score

import (
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/strategy"
)

// Decision classifies a scored mapping against the configured thresholds.
type Decision string

const (
	DecisionAutoAccept       Decision = "auto_accept"
	DecisionNeedsReview      Decision = "needs_review"
	DecisionUnmapped         Decision = "unmapped"
	DecisionNeedsManualInput Decision = "needs_manual_input"
)

// ScoredMapping is the aggregator's verdict for one target field. It holds
// the winning source field by name only; values are re-read from the
// current request when the result is composed, which is what makes these
// safe to cache across requests with the same shape.
type ScoredMapping struct {
	TargetField   string                    `json:"target_field"`
	SourceField   string                    `json:"source_field,omitempty"`
	CombinedScore float64                   `json:"combined_score"`
	Strategy      string                    `json:"strategy,omitempty"`
	Decision      Decision                  `json:"decision"`
	Contributing  []strategy.MatchCandidate `json:"contributing_strategies,omitempty"`
	Rationale     string                    `json:"rationale,omitempty"`
}

// Config holds the aggregator's boosts and thresholds.
type Config struct {
	Boosts              map[string]float64
	AutoAcceptThreshold float64
	ReviewThresholds    map[string]float64
}

// DefaultConfig returns the production boost and threshold configuration.
func DefaultConfig() Config {
	return Config{
		Boosts: map[string]float64{
			strategy.NameExact:    1.5,
			strategy.NameSemantic: 1.2,
			strategy.NamePattern:  1.1,
			strategy.NameFuzzy:    1.0,
		},
		AutoAcceptThreshold: 0.95,
		ReviewThresholds: map[string]float64{
			strategy.NameExact:    0.75,
			strategy.NameSemantic: 0.8,
			strategy.NamePattern:  0.75,
			strategy.NameFuzzy:    0.7,
		},
	}
}

// strategyPriority orders strategies for deterministic tie-breaking.
var strategyPriority = map[string]int{
	strategy.NameExact:    0,
	strategy.NameSemantic: 1,
	strategy.NamePattern:  2,
	strategy.NameFuzzy:    3,
}

// MultiplierFunc looks up the learned confidence multiplier for a
// (source field, target field) pair. Implementations must be non-blocking
// and return 1.0 when no adjustment applies.
type MultiplierFunc func(sourceField, targetField string) float64

// NeutralMultiplier ignores learning entirely.
func NeutralMultiplier(string, string) float64 { return 1.0 }
