package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPort is used when the configuration file does not set a port.
const DefaultPort uint16 = 3000

// DefaultFile is the configuration file looked up when no path is given.
const DefaultFile = "openspec-ui.json"

// SourceConfig is one user-authored source entry.
type SourceConfig struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Config represents the dashboard configuration file
type Config struct {
	Sources []SourceConfig `json:"sources" yaml:"sources"`
	Port    uint16         `json:"port" yaml:"port"`
}

// fileConfig is the on-disk shape; Sources is a pointer so a missing list can be told apart
// from an empty one.
type fileConfig struct {
	Sources *[]SourceConfig `json:"sources" yaml:"sources"`
	Port    *uint16         `json:"port" yaml:"port"`
}

// ReadError is returned when the configuration file cannot be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read config file %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError is returned when the configuration file does not match the schema.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse config file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Sources = []SourceConfig{}
	config.Port = DefaultPort
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadConfig loads configuration from a JSON (or, by extension, YAML) file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, &ReadError{Path: configPath, Err: err}
	}

	var raw fileConfig
	if isYAML(configPath) {
		err = yaml.Unmarshal(data, &raw)
	} else {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, &ParseError{Path: configPath, Err: err}
	}
	if raw.Sources == nil {
		return nil, &ParseError{Path: configPath, Err: fmt.Errorf("missing field \"sources\"")}
	}

	config := &Config{}
	setDefaults(config)
	config.Sources = append(config.Sources, (*raw.Sources)...)
	if raw.Port != nil {
		config.Port = *raw.Port
	}
	return config, nil
}

// Marshal encodes the configuration in the format implied by path.
func Marshal(configPath string, config *Config) ([]byte, error) {
	out := *config
	if out.Sources == nil {
		out.Sources = []SourceConfig{}
	}
	if isYAML(configPath) {
		return yaml.Marshal(&out)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveConfig writes the configuration to configPath, replacing the file atomically.
func SaveConfig(configPath string, config *Config) error {
	data, err := Marshal(configPath, config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(configPath)
	tmp, err := os.CreateTemp(dir, ".openspec-ui-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpName, configPath); err != nil {
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}

// SaveSources replaces the source list in configPath, keeping every other field as it is on disk.
func SaveSources(configPath string, sources []SourceConfig) error {
	config, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	config.Sources = append([]SourceConfig{}, sources...)
	return SaveConfig(configPath, config)
}
