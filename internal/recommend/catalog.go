package recommend

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"workflow-governance/backend/pkg/models"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Bundles []models.Bundle `yaml:"bundles"`
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) ([]models.Bundle, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for i, b := range f.Bundles {
		if b.Name == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
	}
	return f.Bundles, nil
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the
// built-in catalog.
func LoadCatalog(path string) ([]models.Bundle, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() ([]models.Bundle, error) {
	return ParseCatalog(defaultCatalog)
}
