package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Library: LibraryConfig{
			ManifestPath: "/library/tracks.yaml",
		},
		Streaming: StreamingConfig{
			ChunkSize: 10240,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{
			name:    "valid config - ok",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "empty log level - ok",
			mutate:  func(c *Config) { c.Log.Level = "" },
			wantErr: false,
		},
		{
			name:        "port zero",
			mutate:      func(c *Config) { c.API.Port = 0 },
			wantErr:     true,
			errContains: "api.port",
		},
		{
			name:        "port out of range",
			mutate:      func(c *Config) { c.API.Port = 70000 },
			wantErr:     true,
			errContains: "api.port",
		},
		{
			name:        "missing manifest path",
			mutate:      func(c *Config) { c.Library.ManifestPath = "" },
			wantErr:     true,
			errContains: "manifest_path",
		},
		{
			name:        "negative chunk size",
			mutate:      func(c *Config) { c.Streaming.ChunkSize = -1 },
			wantErr:     true,
			errContains: "chunk_size",
		},
		{
			name:        "bogus log level",
			mutate:      func(c *Config) { c.Log.Level = "verbose" },
			wantErr:     true,
			errContains: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_LibraryRoot(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "/library", cfg.LibraryRoot(), "should default to the manifest directory")

	cfg.Library.RootPath = "/audio"
	assert.Equal(t, "/audio", cfg.LibraryRoot())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
api:
  host: "127.0.0.1"
  port: 9090
library:
  manifest_path: "/library/tracks.yaml"
log:
  level: "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "/library/tracks.yaml", cfg.Library.ManifestPath)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults fill in what the file omits.
	assert.Equal(t, 10240, cfg.Streaming.ChunkSize)
	assert.Equal(t, 100, cfg.Log.MaxSize)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
api:
  port: -1
library:
  manifest_path: "/library/tracks.yaml"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.port")
}

func TestManager_UpdateConfig(t *testing.T) {
	mgr := NewManager(validConfig())
	assert.Equal(t, 8080, mgr.GetConfig().API.Port)

	updated := validConfig()
	updated.API.Port = 9090
	require.NoError(t, mgr.UpdateConfig(updated))
	assert.Equal(t, 9090, mgr.GetConfig().API.Port)

	bad := validConfig()
	bad.API.Port = 0
	assert.Error(t, mgr.UpdateConfig(bad), "invalid config should be rejected")
	assert.Equal(t, 9090, mgr.GetConfig().API.Port, "rejected update must not replace config")
}
