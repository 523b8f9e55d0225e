// service.go
package fallback

import (
	"fmt"
	"strings"
	"time"

	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/registry"
	"github.com/caretide/ivrmap/cmd/ivrmap/ivr/template"
	"github.com/rs/zerolog"
)

// Resolution is a fallback-produced value for a target field that no
// strategy-based match could fill.
type Resolution struct {
	Value     string
	Kind      template.FallbackKind
	Rationale string
}

// Service applies a manufacturer's ordered fallback rules. Rules run in
// configuration order; the first one that resolves wins. Fallback always
// runs against current request data, even on cache hits, because rules can
// be time-dependent.
type Service struct {
	log zerolog.Logger
}

// NewService creates the fallback chain service.
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "fallback_chain").Logger()}
}

// Resolve tries every rule configured for the target field, in order.
// It returns nil when no rule applies; the caller decides between a manual
// input prompt and reporting missing data.
func (s *Service) Resolve(target template.TemplateField, rules []template.FallbackRule, mapped map[string]string, now time.Time) *Resolution {
	targetKey := registry.NormalizeFieldName(target.Name)

	for _, rule := range rules {
		if registry.NormalizeFieldName(rule.Field) != targetKey {
			continue
		}

		resolution := s.applyRule(rule, mapped, now)
		if resolution == nil {
			continue
		}

		s.log.Debug().
			Str("target_field", target.Name).
			Str("kind", string(resolution.Kind)).
			Msg("Fallback rule resolved target field")
		return resolution
	}

	return nil
}

func (s *Service) applyRule(rule template.FallbackRule, mapped map[string]string, now time.Time) *Resolution {
	switch rule.Kind {
	case template.FallbackDefault:
		value := evalExpression(rule.Value, now)
		if value == "" {
			return nil
		}
		return &Resolution{
			Value:     value,
			Kind:      template.FallbackDefault,
			Rationale: "manufacturer default",
		}

	case template.FallbackDerived:
		parts := make([]string, 0, len(rule.Compose))
		for _, fieldName := range rule.Compose {
			if value := lookupMapped(mapped, fieldName); value != "" {
				parts = append(parts, value)
			}
		}
		if len(parts) == 0 {
			return nil
		}
		separator := rule.Separator
		if separator == "" {
			separator = ", "
		}
		return &Resolution{
			Value:     strings.Join(parts, separator),
			Kind:      template.FallbackDerived,
			Rationale: fmt.Sprintf("derived from %s", strings.Join(rule.Compose, ", ")),
		}

	case template.FallbackConditional:
		if lookupMapped(mapped, rule.WhenField) == "" {
			return nil
		}
		value := evalExpression(rule.Value, now)
		if value == "" {
			return nil
		}
		return &Resolution{
			Value:     value,
			Kind:      template.FallbackConditional,
			Rationale: fmt.Sprintf("conditional on %s being present", rule.WhenField),
		}
	}

	return nil
}

func lookupMapped(mapped map[string]string, fieldName string) string {
	return mapped[registry.NormalizeFieldName(fieldName)]
}

// evalExpression resolves the small set of computed default expressions;
// anything else is a constant.
func evalExpression(value string, now time.Time) string {
	switch value {
	case "today":
		return now.Format("2006-01-02")
	case "now":
		return now.Format(time.RFC3339)
	default:
		return value
	}
}
