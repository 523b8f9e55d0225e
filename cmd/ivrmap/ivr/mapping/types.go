// types.go
package mapping

import (
	"errors"
	"time"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/score"
)

// ErrMappingTimeout is returned when a whole mapping call exceeds the
// configured deadline. No partial result is returned; the caller may retry
// or fall back to static, configuration-only mapping.
var ErrMappingTimeout = errors.New("mapping timed out")

// ErrTemplateTooLarge is returned when a template exceeds the batch cap.
var ErrTemplateTooLarge = errors.New("template exceeds maximum field count")

// FieldMapping is one finalized target-field assignment.
type FieldMapping struct {
	TargetField string         `json:"target_field"`
	SourceField string         `json:"source_field,omitempty"`
	Value       string         `json:"value,omitempty"`
	Confidence  float64        `json:"confidence"`
	Decision    score.Decision `json:"decision"`
	Strategy    string         `json:"strategy,omitempty"`
	Rationale   string         `json:"rationale,omitempty"`
}

// Result is the orchestrator's response for one template. Field order
// follows the template's field order regardless of completion order.
type Result struct {
	Manufacturer   string         `json:"manufacturer"`
	Mappings       []FieldMapping `json:"mappings"`
	UnmappedFields []string       `json:"unmapped_fields"`
	NeedsReview    []string       `json:"needs_review"`
	MissingData    []string       `json:"missing_data"`
	MappingNotes   string         `json:"mapping_notes"`
	CacheHit       bool           `json:"cache_hit"`
}

// Config controls the orchestrator's scheduling and limits.
type Config struct {
	// Timeout bounds one whole MapTemplate call.
	Timeout time.Duration

	// MaxBatchSize is the hard cap on template field count.
	MaxBatchSize int

	// QueueThreshold is the field count above which scoring runs through
	// the bounded worker pool instead of one goroutine per field.
	QueueThreshold int

	// Workers is the pool size for large templates.
	Workers int

	// EnableStaticFallback allows callers to request a defaults-only
	// mapping after a timeout.
	EnableStaticFallback bool
}

// DefaultConfig returns the production orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:              30 * time.Second,
		MaxBatchSize:         100,
		QueueThreshold:       50,
		Workers:              8,
		EnableStaticFallback: true,
	}
}
