// types.go
package registry

// SemanticType classifies the kind of value a field is expected to carry.
type SemanticType string

const (
	TypeText     SemanticType = "text"
	TypeDate     SemanticType = "date"
	TypePhone    SemanticType = "phone"
	TypeEmail    SemanticType = "email"
	TypeNPI      SemanticType = "npi"
	TypeZip      SemanticType = "zip"
	TypeSSN      SemanticType = "ssn"
	TypeBoolean  SemanticType = "boolean"
	TypeCurrency SemanticType = "currency"
)

// CanonicalField is the internal standardized identity for a piece of data,
// independent of any manufacturer's form vocabulary.
type CanonicalField struct {
	Name    string       `json:"name"`
	Aliases []string     `json:"aliases,omitempty"`
	Type    SemanticType `json:"type"`
}
