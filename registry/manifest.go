package registry

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestSchemaV1 is the only manifest schema this engine understands.
const ManifestSchemaV1 = "actionmesh.manifest.v1"

// Manifest is the deployment-time registry input: document metadata for the
// OpenAPI generator, the base configuration shared by every handler, and the
// ordered function table. It is read once at engine construction and never
// mutated afterwards.
type Manifest struct {
	Schema        string               `yaml:"schema" json:"schema"`
	Title         string               `yaml:"title" json:"title"`
	Version       string               `yaml:"version" json:"version"`
	Servers       []string             `yaml:"servers,omitempty" json:"servers,omitempty"`
	BasePath      string               `yaml:"base_path,omitempty" json:"base_path,omitempty"`
	Configuration map[string]any       `yaml:"configuration,omitempty" json:"configuration,omitempty"`
	Functions     []FunctionDescriptor `yaml:"functions" json:"functions"`
}

// ParseManifest decodes and validates a YAML manifest.
func ParseManifest(input []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(input, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks the manifest document shape. Function ordering is
// significant (path resolution is first-declared-wins), so duplicates and
// template errors are reported by index.
func (m Manifest) Validate() error {
	if strings.TrimSpace(m.Schema) != ManifestSchemaV1 {
		return fmt.Errorf("manifest schema must be %q", ManifestSchemaV1)
	}
	if strings.TrimSpace(m.Title) == "" {
		return errors.New("manifest title is required")
	}
	if strings.TrimSpace(m.Version) == "" {
		return errors.New("manifest version is required")
	}
	for i, server := range m.Servers {
		if strings.TrimSpace(server) == "" {
			return fmt.Errorf("servers[%d] must be non-empty", i)
		}
	}
	if m.BasePath != "" && !strings.HasPrefix(m.BasePath, "/") {
		return fmt.Errorf("base_path must start with /: %q", m.BasePath)
	}
	if len(m.Functions) == 0 {
		return errors.New("manifest functions must be non-empty")
	}
	seen := make(map[string]int, len(m.Functions))
	for i, fn := range m.Functions {
		if err := fn.validate(i); err != nil {
			return err
		}
		name := strings.TrimSpace(fn.FunctionName)
		if first, ok := seen[name]; ok {
			return fmt.Errorf("functions[%d].function_name duplicates functions[%d]: %q", i, first, name)
		}
		seen[name] = i
	}
	return nil
}
