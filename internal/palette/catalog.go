package palette

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rendis/flowedit/pkg/schema"
)

// catalogFile is the on-disk catalog format.
type catalogFile struct {
	// Extend appends the file's templates to the built-in ones instead of
	// replacing them.
	Extend    bool       `yaml:"extend"`
	Templates []Template `yaml:"templates"`
}

// LoadCatalog reads a YAML template catalog.
func LoadCatalog(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses a YAML template catalog.
func ParseCatalog(data []byte) (*Palette, error) {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	templates := cf.Templates
	if cf.Extend {
		templates = append(defaultTemplates(), templates...)
	}
	for i := range templates {
		templates[i].Data = normalize(templates[i].Data)
	}
	return New(templates)
}

// normalize converts yaml.v3's map[string]interface{} trees and int values to
// the shapes encoding/json would produce, so catalog data behaves like data
// loaded from the API.
func normalize(d schema.NodeData) schema.NodeData {
	if d == nil {
		return schema.NodeData{}
	}
	out := make(schema.NodeData, len(d))
	for k, v := range d {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(normalize(t))
	case []any:
		s := make([]any, len(t))
		for i, vv := range t {
			s[i] = normalizeValue(vv)
		}
		return s
	case int:
		return float64(t)
	default:
		return v
	}
}
