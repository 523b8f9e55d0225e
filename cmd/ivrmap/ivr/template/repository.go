package template

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// Repository loads and serves manufacturer template definitions. Templates
// are loaded from a config directory at startup and are effectively
// immutable during request handling.
type Repository struct {
	log       zerolog.Logger
	localPath string
	templates map[string]*Template
	mu        sync.RWMutex
}

// NewRepository creates a template repository reading from localPath.
func NewRepository(log zerolog.Logger, localPath string) *Repository {
	return &Repository{
		log:       log.With().Str("component", "template_repository").Logger(),
		localPath: localPath,
		templates: make(map[string]*Template),
	}
}

// LoadTemplates loads all manufacturer template JSON files into the
// repository. Invalid files are logged and skipped so one bad config does
// not take down the others.
func (repo *Repository) LoadTemplates() error {
	files, err := os.ReadDir(repo.localPath)
	if err != nil {
		return fmt.Errorf("failed to read template directory: %w", err)
	}

	loaded := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		filePath := filepath.Join(repo.localPath, file.Name())
		tmpl, err := repo.loadTemplateFile(filePath)
		if err != nil {
			repo.log.Error().
				Err(err).
				Str("file", file.Name()).
				Msg("Failed to load template file")
			continue
		}

		repo.mu.Lock()
		repo.templates[tmpl.Manufacturer] = tmpl
		repo.mu.Unlock()
		loaded++

		repo.log.Debug().
			Str("manufacturer", tmpl.Manufacturer).
			Int("fields", len(tmpl.Fields)).
			Msg("Loaded manufacturer template")
	}

	repo.log.Info().Int("templates", loaded).Msg("Loaded manufacturer templates")
	return nil
}

func (repo *Repository) loadTemplateFile(filePath string) (*Template, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var tmpl Template
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	if err := ValidateTemplate(&tmpl); err != nil {
		return nil, err
	}

	return &tmpl, nil
}

// ValidateTemplate schema-checks a template against its required keys.
func ValidateTemplate(tmpl *Template) error {
	if tmpl.Manufacturer == "" {
		return fmt.Errorf("template has no manufacturer")
	}
	if len(tmpl.Fields) == 0 {
		return fmt.Errorf("template %s has no fields", tmpl.Manufacturer)
	}

	seen := make(map[string]bool, len(tmpl.Fields))
	for _, field := range tmpl.Fields {
		if field.Name == "" {
			return fmt.Errorf("template %s has a field without raw_field_name", tmpl.Manufacturer)
		}
		if seen[field.Name] {
			return fmt.Errorf("template %s has duplicate field %q", tmpl.Manufacturer, field.Name)
		}
		seen[field.Name] = true
	}

	for _, rule := range tmpl.Fallbacks {
		if rule.Field == "" {
			return fmt.Errorf("template %s has a fallback rule without field", tmpl.Manufacturer)
		}
		switch rule.Kind {
		case FallbackDefault, FallbackDerived, FallbackConditional:
		default:
			return fmt.Errorf("template %s fallback for %q has unknown strategy %q", tmpl.Manufacturer, rule.Field, rule.Kind)
		}
	}

	return nil
}

// GetTemplate returns the template for a manufacturer.
func (repo *Repository) GetTemplate(manufacturer string) (*Template, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	tmpl, exists := repo.templates[manufacturer]
	if !exists {
		return nil, fmt.Errorf("no template for manufacturer: %s", manufacturer)
	}
	return tmpl, nil
}

// Manufacturers returns the loaded manufacturer identifiers in sorted order.
func (repo *Repository) Manufacturers() []string {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	names := make([]string, 0, len(repo.templates))
	for name := range repo.templates {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AddTemplate registers a template directly, mainly for tests and embedded
// use without a config directory.
func (repo *Repository) AddTemplate(tmpl *Template) error {
	if err := ValidateTemplate(tmpl); err != nil {
		return err
	}
	repo.mu.Lock()
	repo.templates[tmpl.Manufacturer] = tmpl
	repo.mu.Unlock()
	return nil
}
