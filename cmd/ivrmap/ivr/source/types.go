// types.go
package source

import (
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
)

// Provenance tags which collaborator produced a source field. Strategies
// branch on the tag instead of inspecting runtime types.
type Provenance string

const (
	ProvenanceFHIR Provenance = "fhir"
	ProvenanceOCR  Provenance = "ocr"
	ProvenanceForm Provenance = "form"
)

// SourceField is one key-value pair from an ingesting data source. It lives
// for a single mapping request.
type SourceField struct {
	Name       string                `json:"name"`
	Value      string                `json:"value"`
	Provenance Provenance            `json:"provenance"`
	Type       registry.SemanticType `json:"type,omitempty"`

	// Confidence is the upstream extraction confidence, currently only set
	// for OCR fields. Nil means the producer attached no confidence.
	Confidence *float64 `json:"confidence,omitempty"`
}

// ShapeKey returns the name:type pair used for cache keying. Mapping
// structure depends on field shape, not values, so two requests with the
// same shape share cached aggregation results.
func (f SourceField) ShapeKey() string {
	return registry.NormalizeFieldName(f.Name) + ":" + string(f.Type)
}
