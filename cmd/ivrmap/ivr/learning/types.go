// types.go
package learning

import "time"

// LearningRecord tracks historical accept/reject outcomes for one
// (source field, target field, manufacturer) pair. Confidence only moves
// within [DecayFloor, MaxConfidence]; usage_count only increments.
type LearningRecord struct {
	SourceField  string    `db:"source_field" json:"source_field"`
	TargetField  string    `db:"target_field" json:"target_field"`
	Manufacturer string    `db:"manufacturer" json:"manufacturer"`
	UsageCount   int       `db:"usage_count" json:"usage_count"`
	SuccessCount int       `db:"success_count" json:"success_count"`
	Confidence   float64   `db:"confidence" json:"confidence"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Config holds the confidence adjustment factors.
type Config struct {
	BoostFactor       float64
	DecayFactor       float64
	MaxConfidence     float64
	DecayFloor        float64
	InitialConfidence float64

	// MinUsage is the usage count a pair must reach before its learned
	// confidence affects scoring. Below it the multiplier is neutral.
	MinUsage int
}

// DefaultConfig returns the production learning parameters.
func DefaultConfig() Config {
	return Config{
		BoostFactor:       1.05,
		DecayFactor:       0.9,
		MaxConfidence:     0.99,
		DecayFloor:        0.5,
		InitialConfidence: 0.9,
		MinUsage:          5,
	}
}
