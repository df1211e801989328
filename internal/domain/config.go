package domain

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"genomap/internal/properties"
	"genomap/internal/registry"
)

// Config is the YAML description of a domain:
//
//	properties:
//	  genotypes: {ploidy: 2}
//	  stats: {genomicContextSize: {min: 21}}
//	input: {kind: genotype-v38}
//	outputs: [A, T, C, G, numDistinctAlleles, metaData]
type Config struct {
	Properties map[string]any    `yaml:"properties"`
	Input      registry.NodeSpec `yaml:"input"`
	Outputs    []string          `yaml:"outputs"`
	// SortCounts orders each sample's counts by support before mapping.
	// Defaults to true.
	SortCounts *bool `yaml:"sort_counts,omitempty"`
}

func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse domain config: %w", err)
	}
	return cfg, nil
}

func (c Config) properties() (properties.Properties, error) {
	return properties.FromMap(c.Properties)
}

func (c Config) sortCounts() bool {
	return c.SortCounts == nil || *c.SortCounts
}
