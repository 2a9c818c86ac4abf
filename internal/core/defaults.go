package core

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults is the built-in category set, catalog and dependency list.
type Defaults struct {
	Categories   []Category          `yaml:"categories"`
	Catalog      map[string][]string `yaml:"catalog"`
	Dependencies []string            `yaml:"dependencies"`
}

// LoadDefaults parses the embedded defaults file.
func LoadDefaults() (*Defaults, error) {
	return ParseDefaults(defaultsYAML)
}

// ParseDefaults parses a defaults document. Category keys must be unique
// and every catalog entry must name a declared category.
func ParseDefaults(data []byte) (*Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing defaults: %w", err)
	}
	if len(d.Categories) == 0 {
		return nil, fmt.Errorf("defaults declare no categories")
	}

	seen := make(map[string]bool, len(d.Categories))
	for _, c := range d.Categories {
		if c.Key == "" || c.Dir == "" {
			return nil, fmt.Errorf("category %q: key and dir are required", c.Key)
		}
		if seen[c.Key] {
			return nil, fmt.Errorf("duplicate category %q", c.Key)
		}
		seen[c.Key] = true
	}
	for key := range d.Catalog {
		if !seen[key] {
			return nil, fmt.Errorf("catalog references unknown category %q", key)
		}
	}
	return &d, nil
}
