// service.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// Registry resolves raw field names to their canonical identity. It is
// populated once at startup and read-only afterwards, so lookups need no
// locking.
type Registry struct {
	byName  map[string]*CanonicalField
	byAlias map[string]*CanonicalField
	log     zerolog.Logger
}

// NewRegistry builds a registry from the given canonical fields. It fails on
// duplicate canonical names and on aliases that would resolve to more than
// one canonical field.
func NewRegistry(fields []CanonicalField, log zerolog.Logger) (*Registry, error) {
	r := &Registry{
		byName:  make(map[string]*CanonicalField, len(fields)),
		byAlias: make(map[string]*CanonicalField),
		log:     log.With().Str("component", "field_registry").Logger(),
	}

	for i := range fields {
		field := &fields[i]
		nameKey := NormalizeFieldName(field.Name)
		if nameKey == "" {
			return nil, fmt.Errorf("canonical field name is empty")
		}
		if _, exists := r.byName[nameKey]; exists {
			return nil, fmt.Errorf("duplicate canonical field name: %s", field.Name)
		}
		r.byName[nameKey] = field

		for _, alias := range field.Aliases {
			aliasKey := NormalizeFieldName(alias)
			if aliasKey == "" {
				continue
			}
			if existing, exists := r.byAlias[aliasKey]; exists && existing.Name != field.Name {
				return nil, fmt.Errorf("ambiguous alias %q: maps to both %s and %s", alias, existing.Name, field.Name)
			}
			r.byAlias[aliasKey] = field
		}
	}

	r.log.Debug().
		Int("fields", len(r.byName)).
		Int("aliases", len(r.byAlias)).
		Msg("Built canonical field registry")

	return r, nil
}

// NewRegistryFromFile loads canonical field definitions from a JSON file.
// When path is empty the built-in default vocabulary is used.
func NewRegistryFromFile(path string, log zerolog.Logger) (*Registry, error) {
	if path == "" {
		return NewRegistry(DefaultFields(), log)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var fields []CanonicalField
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}

	return NewRegistry(fields, log)
}

// Resolve returns the canonical field for a raw name, or nil when the name
// has no canonical identity. A nil result is not an error; callers must
// treat it as "unknown field" and fall back to raw-name matching.
func (r *Registry) Resolve(rawName string) *CanonicalField {
	key := NormalizeFieldName(rawName)
	if key == "" {
		return nil
	}
	if field, ok := r.byName[key]; ok {
		return field
	}
	if field, ok := r.byAlias[key]; ok {
		return field
	}
	return nil
}

// Names returns all canonical field names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for _, field := range r.byName {
		names = append(names, field.Name)
	}
	slices.Sort(names)
	return names
}

// NormalizeFieldName lowercases a raw field name and collapses runs of
// non-alphanumeric characters into single underscores, so that
// "Physician Name", "physician-name" and "physician_name" all compare equal.
func NormalizeFieldName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastUnderscore := true // strip leading separators
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}
