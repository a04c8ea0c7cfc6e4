package simconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML document at path into a copy of Default,
// overriding only the fields the document sets, then validates the
// result. This is a convenience constructor; the engine's own
// external interface (spec.md §6) still takes a Config value, nothing
// downstream of Default depends on files existing.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("simconfig: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("simconfig: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("simconfig: %s: %w", path, err)
	}
	return cfg, nil
}
