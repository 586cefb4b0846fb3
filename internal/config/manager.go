package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Manager owns the configuration file at a fixed path.
type Manager struct {
	path   string
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewManager creates a manager for the configuration file at path.
func NewManager(path string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		path:   path,
		dir:    filepath.Dir(path),
		logger: logger,
	}
}

// Path returns the configuration file path.
func (m *Manager) Path() string { return m.path }

// Dir returns the directory relative source paths are resolved against.
func (m *Manager) Dir() string { return m.dir }

// Load reads the configuration file.
func (m *Manager) Load() (*Config, error) {
	return LoadConfig(m.path)
}

// LoadSources reads the configuration file and resolves its sources.
func (m *Manager) LoadSources() ([]Source, error) {
	return m.loadSources()
}

func (m *Manager) loadSources() ([]Source, error) {
	cfg, err := m.Load()
	if err != nil {
		return nil, err
	}
	sources := Resolve(cfg.Sources, m.dir)
	for _, s := range sources {
		if !s.Valid {
			m.logger.Warn("source path does not exist or is not a directory",
				zap.String("source", s.Name), zap.String("path", s.Path))
		}
	}
	return sources, nil
}

// ValidateSources validates a submitted source list against the configuration directory.
func (m *Manager) ValidateSources(sources []SourceConfig) ([]SourceConfig, []string, error) {
	valid, warnings, err := ValidateSources(sources, m.dir)
	for _, w := range warnings {
		m.logger.Warn(w)
	}
	return valid, warnings, err
}

// Update saves sources, re-reads the file and hands the resolved list to apply, all under one
// lock, so the last applied list always matches the file. apply is not called on failure.
func (m *Manager) Update(sources []SourceConfig, apply func([]Source)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := SaveSources(m.path, sources); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	resolved, err := m.loadSources()
	if err != nil {
		return fmt.Errorf("failed to reload sources: %w", err)
	}
	apply(resolved)
	return nil
}

// Reload re-reads the file and hands the resolved list to apply, serialized with Update.
func (m *Manager) Reload(apply func([]Source)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resolved, err := m.loadSources()
	if err != nil {
		return err
	}
	apply(resolved)
	return nil
}
