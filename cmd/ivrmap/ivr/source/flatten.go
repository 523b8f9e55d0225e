package source

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/util"
)

// fhirFieldPaths maps flattened FHIR paths onto the canonical vocabulary.
// Paths not listed here still become source fields under their flattened
// name, they just rely on the fuzzy strategies instead of exact matching.
var fhirFieldPaths = map[string]string{
	"patient_name_0_family":             "patient_last_name",
	"patient_name_0_given_0":            "patient_first_name",
	"patient_birthdate":                 "patient_dob",
	"patient_gender":                    "patient_gender",
	"patient_telecom_0_value":           "patient_phone",
	"patient_address_0_line_0":          "patient_address",
	"patient_address_0_city":            "patient_city",
	"patient_address_0_state":           "patient_state",
	"patient_address_0_postalcode":      "patient_zip",
	"coverage_subscriberid":             "member_id",
	"coverage_class_0_value":            "group_number",
	"coverage_payor_0_display":          "payer_name",
	"practitioner_name_0_family":        "physician_name",
	"practitioner_identifier_0_value":   "physician_npi",
	"practitioner_telecom_0_value":      "physician_phone",
	"organization_name":                 "facility_name",
	"organization_identifier_0_value":   "facility_npi",
	"organization_address_0_line_0":     "facility_address",
	"organization_telecom_0_value":      "physician_fax",
}

// FlattenFHIR converts a raw FHIR resource (Patient, Coverage, Practitioner,
// Organization) into provenance-tagged source fields. Nested structures are
// flattened into underscore-joined path keys prefixed with the resource type.
func FlattenFHIR(raw json.RawMessage) ([]SourceField, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse FHIR resource: %w", err)
	}

	resourceType, _ := doc["resourceType"].(string)
	if resourceType == "" {
		return nil, fmt.Errorf("FHIR resource has no resourceType")
	}
	delete(doc, "resourceType")

	flat := make(map[string]string)
	flattenValue(strings.ToLower(resourceType), doc, flat)

	fields := make([]SourceField, 0, len(flat))
	for path, value := range flat {
		if value == "" {
			continue
		}
		name := path
		if canonical, ok := fhirFieldPaths[path]; ok {
			name = canonical
		}
		fields = append(fields, SourceField{
			Name:       name,
			Value:      value,
			Provenance: ProvenanceFHIR,
		})
	}

	return fields, nil
}

func flattenValue(prefix string, value interface{}, out map[string]string) {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, child := range v {
			flattenValue(prefix+"_"+strings.ToLower(key), child, out)
		}
	case []interface{}:
		for i, child := range v {
			flattenValue(prefix+"_"+strconv.Itoa(i), child, out)
		}
	case string:
		out[prefix] = v
	case float64:
		out[prefix] = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		out[prefix] = strconv.FormatBool(v)
	case nil:
		// skip
	}
}

// OCRField is one extracted field from a document-intelligence result,
// carrying the extractor's own confidence.
type OCRField struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// OCRResult is the shape returned by the document analysis collaborator.
type OCRResult struct {
	DocumentType string     `json:"document_type,omitempty"`
	Fields       []OCRField `json:"fields"`
}

// FlattenOCR converts an OCR extraction result into source fields. The
// upstream confidence is attached so the fuzzy strategy can use it as a
// prior.
func FlattenOCR(result OCRResult) []SourceField {
	fields := make([]SourceField, 0, len(result.Fields))
	for _, f := range result.Fields {
		if f.Value == "" {
			continue
		}
		fields = append(fields, SourceField{
			Name:       f.Name,
			Value:      f.Value,
			Provenance: ProvenanceOCR,
			Confidence: util.Float64Ptr(f.Confidence),
		})
	}
	return fields
}

// FromForm converts an intake form submission into source fields. Declared
// types are taken from the canonical registry when the field resolves.
func FromForm(values map[string]string, reg *registry.Registry) []SourceField {
	fields := make([]SourceField, 0, len(values))
	for name, value := range values {
		if value == "" {
			continue
		}
		field := SourceField{
			Name:       name,
			Value:      value,
			Provenance: ProvenanceForm,
		}
		if canonical := reg.Resolve(name); canonical != nil {
			field.Type = canonical.Type
		}
		fields = append(fields, field)
	}
	return fields
}
