// types.go
package template

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"golang.org/x/exp/slices"
)

// TemplateField describes one field of a manufacturer's IVR form, named
// exactly as it appears on the PDF or e-signature template.
type TemplateField struct {
	Name     string                `json:"raw_field_name"`
	Type     registry.SemanticType `json:"semantic_type"`
	Required bool                  `json:"required"`
}

// FallbackKind identifies one step of the fallback chain.
type FallbackKind string

const (
	FallbackDefault     FallbackKind = "default"
	FallbackDerived     FallbackKind = "derived"
	FallbackConditional FallbackKind = "conditional"
)

// FallbackRule is a manufacturer-configured rule applied to a target field
// when no strategy-based match clears threshold.
type FallbackRule struct {
	Field     string       `json:"field"`
	Kind      FallbackKind `json:"strategy"`
	Value     string       `json:"value,omitempty"`      // constant or expression such as "today"
	Compose   []string     `json:"compose,omitempty"`    // derived: already-mapped fields to join
	Separator string       `json:"separator,omitempty"`  // derived: join separator, default ", "
	WhenField string       `json:"when_field,omitempty"` // conditional: field that must be present
}

// Template is one manufacturer's IVR form definition.
type Template struct {
	Manufacturer string          `json:"manufacturer"`
	Fields       []TemplateField `json:"fields"`
	Fallbacks    []FallbackRule  `json:"fallbacks,omitempty"`
}

// Signature returns a stable identifier for the template's field layout,
// used in cache keys. It changes whenever the field list changes, which
// busts stale cache entries.
func (t *Template) Signature() string {
	parts := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		parts = append(parts, registry.NormalizeFieldName(f.Name)+":"+string(f.Type))
	}
	slices.Sort(parts)

	hasher := sha256.New()
	hasher.Write([]byte(t.Manufacturer + "|" + strings.Join(parts, ",")))
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
