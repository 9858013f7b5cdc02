package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/omics-os/leadengine/internal/entity"
)

// Registry holds the configured outreach identities. Loaded once at startup,
// read-only afterwards.
type Registry struct {
	personas  []entity.Persona
	defaultID string
}

type registryFile struct {
	Default  string           `yaml:"default"`
	Personas []entity.Persona `yaml:"personas"`
}

// LoadRegistry reads the persona registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona registry: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse persona registry: %w", err)
	}

	return NewRegistry(file.Personas, file.Default)
}

func NewRegistry(personas []entity.Persona, defaultID string) (*Registry, error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("persona registry is empty")
	}

	seen := map[string]bool{}
	for _, p := range personas {
		if p.ID == "" || p.FromEmail == "" {
			return nil, fmt.Errorf("persona %q is missing id or from_email", p.ID)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		seen[p.ID] = true
	}

	if defaultID == "" {
		defaultID = personas[0].ID
	} else if !seen[defaultID] {
		return nil, fmt.Errorf("default persona %q not in registry", defaultID)
	}

	return &Registry{personas: personas, defaultID: defaultID}, nil
}

func (r *Registry) ByID(id string) (entity.Persona, bool) {
	for _, p := range r.personas {
		if p.ID == id {
			return p, true
		}
	}
	return entity.Persona{}, false
}

func (r *Registry) Default() entity.Persona {
	p, _ := r.ByID(r.defaultID)
	return p
}

func (r *Registry) All() []entity.Persona {
	out := make([]entity.Persona, len(r.personas))
	copy(out, r.personas)
	return out
}
