package resource

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed resources.yaml
var seedYAML []byte

// Resource is an external support organisation shown in the directory.
type Resource struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	URL         string `json:"url" yaml:"url"`
	Icon        string `json:"icon,omitempty" yaml:"icon"`
}

// Seed returns the built-in directory.
func Seed() ([]Resource, error) {
	return Parse(seedYAML)
}

// Parse decodes a YAML resource list.
func Parse(data []byte) ([]Resource, error) {
	var doc struct {
		Resources []Resource `yaml:"resources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse resources: %w", err)
	}
	for i, r := range doc.Resources {
		if r.ID == "" || r.Name == "" || r.URL == "" {
			return nil, fmt.Errorf("resource %d: id, name and url are required", i)
		}
	}
	return doc.Resources, nil
}
