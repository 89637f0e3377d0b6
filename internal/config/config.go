// Package config loads segmentation configuration from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Load reads a YAML configuration file, layers it over the defaults and
// validates the result. An empty path returns the default configuration.
func Load(path string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		// A declared variables section replaces the defaults wholesale.
		// Unmarshaling into the pre-populated map would merge, leaving
		// default variables the document never mentions (and duplicate
		// columns when a name is spelled with different casing).
		cfg.Variables = nil
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", domain.ErrConfiguration, path, err)
		}
		if cfg.Variables == nil {
			cfg.Variables = domain.DefaultConfig().Variables
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
