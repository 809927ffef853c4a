package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Loader reads and writes the engine configuration file.
type Loader struct {
	configPath string
}

// NewLoader creates a configuration loader for the given path. An empty path
// means defaults plus environment only.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load assembles the configuration: defaults, then the file if present, then
// environment overrides, then validation.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWithOverrides(nil)
}

// LoadWithOverrides loads the configuration and applies the given override
// function between environment loading and validation. CLI flags use this to
// take precedence over both the file and the environment.
func (l *Loader) LoadWithOverrides(apply func(*Config)) (*Config, error) {
	config := &Config{}
	config.SetDefaults()

	if l.configPath != "" {
		if err := l.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	config.LoadFromEnvironment()

	if apply != nil {
		apply(config)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func (l *Loader) loadFromFile(config *Config) error {
	if _, err := os.Stat(l.configPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", l.configPath, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// Save writes the configuration back to the file.
func (l *Loader) Save(config *Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	if err := os.WriteFile(l.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadFromBytes assembles a configuration from YAML bytes, used by tests and
// embedded setups.
func LoadFromBytes(data []byte) (*Config, error) {
	config := &Config{}
	config.SetDefaults()

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.LoadFromEnvironment()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}
