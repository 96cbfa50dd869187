package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/osse101/cosmos-agent/internal/domain"
	"github.com/osse101/cosmos-agent/internal/validation"
)

// Fixture is an offline recipe catalog, optionally with a starting inventory,
// used for dry-run planning without an indexer.
type Fixture struct {
	Version     string                `json:"version,omitempty" yaml:"version,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Recipes     []domain.Recipe       `json:"recipes" yaml:"recipes"`
	Inventory   []domain.InventoryRow `json:"inventory,omitempty" yaml:"inventory,omitempty"`
}

// Catalog builds the recipe catalog of the fixture
func (f Fixture) Catalog() *Catalog {
	return New(f.Recipes)
}

// Snapshot builds the starting inventory of the fixture
func (f Fixture) Snapshot() domain.Inventory {
	return domain.NewInventory(f.Inventory)
}

// LoadFile reads a JSON or YAML (by extension) fixture and validates it
// against the recipe schema before decoding.
func LoadFile(path string, v validation.SchemaValidator) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}

	data := raw
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if v != nil {
		if err := v.ValidateBytes(data, validation.SchemaRecipes); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to decode recipe file %s: %w", path, err)
	}
	return &fixture, nil
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return json.Marshal(doc)
}
