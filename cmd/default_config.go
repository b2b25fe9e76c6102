package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/episim/episim/sim"
	"github.com/episim/episim/sim/population"
)

// Config represents the full run configuration file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Simulation sim.Config        `yaml:"simulation"`
	Population population.Config `yaml:"population"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
}

// TelemetryConfig selects where run telemetry goes.
type TelemetryConfig struct {
	SQLitePath string `yaml:"sqlite_path"` // empty = keep in memory only
}

// DefaultConfig returns the built-in parameter set.
func DefaultConfig() Config {
	return Config{
		Simulation: sim.DefaultConfig(),
		Population: population.DefaultConfig(),
	}
}

// loadConfig overlays the YAML file at path onto DefaultConfig.
// Unknown keys are rejected so typos fail loudly.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config YAML %s: %w", path, err)
	}
	return cfg, nil
}
