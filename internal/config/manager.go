package config

import "sync"

// ConfigGetter returns the current configuration. Components hold one of
// these instead of a *Config so they always observe the latest values.
type ConfigGetter func() *Config

// Manager holds the active configuration and hands out consistent snapshots.
type Manager struct {
	mu     sync.RWMutex
	config *Config
}

// NewManager creates a manager seeded with cfg.
func NewManager(cfg *Config) *Manager {
	return &Manager{config: cfg}
}

// GetConfig returns the current configuration.
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// UpdateConfig replaces the active configuration after validating it.
func (m *Manager) UpdateConfig(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	return nil
}
