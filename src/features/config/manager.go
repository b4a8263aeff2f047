package config

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Manager holds the application configuration and provides thread-safe access to it.
type Manager struct {
	mu     sync.RWMutex
	path   string
	config *Config
}

// NewManager creates a new Manager for the config loaded from path.
func NewManager(path string, config *Config) *Manager {
	return &Manager{path: path, config: config}
}

// Path returns the file the configuration was loaded from.
func (m *Manager) Path() string {
	return m.path
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Reload reads the file again. The current configuration is only replaced
// when the new one is valid.
func (m *Manager) Reload() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.Update(cfg)
	return cfg, nil
}

// Update updates the configuration.
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldConfig := m.config
	m.config = config

	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"paths_changed", !slices.Equal(oldConfig.Path, config.Path),
			"command_changed", !slices.Equal(oldConfig.Command, config.Command) || oldConfig.ScriptType != config.ScriptType,
			"debounce_changed", oldConfig.DebounceWindow() != config.DebounceWindow(),
			"poll_interval_changed", oldConfig.PollInterval != config.PollInterval,
		)
	}
}

// GetJSON returns the current configuration as a JSON string.
func (m *Manager) GetJSON() string {
	jsonBytes, err := json.Marshal(m.Get())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

// GetYAML returns the current configuration as YAML.
func (m *Manager) GetYAML() string {
	yamlBytes, err := yaml.Marshal(m.Get())
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}
