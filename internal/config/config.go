package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the full configuration tree for trackmount.
type Config struct {
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Library   LibraryConfig   `yaml:"library" mapstructure:"library"`
	Streaming StreamingConfig `yaml:"streaming" mapstructure:"streaming"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the HTTP API listener.
type APIConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// LibraryConfig points at the local track library used as the remote catalog.
type LibraryConfig struct {
	// ManifestPath is the YAML manifest describing available tracks.
	ManifestPath string `yaml:"manifest_path" mapstructure:"manifest_path"`
	// RootPath is the directory audio file paths in the manifest are
	// resolved against. Empty means the manifest's own directory.
	RootPath string `yaml:"root_path" mapstructure:"root_path"`
}

// StreamingConfig tunes read session behavior.
type StreamingConfig struct {
	// ChunkSize is the default chunk size in bytes when a read request
	// does not specify one. Clamped to the same bounds as request values.
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// LogConfig configures slog output and file rotation.
type LogConfig struct {
	File       string `yaml:"file" mapstructure:"file"`
	Level      string `yaml:"level" mapstructure:"level"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // megabytes
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`   // days
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// Validate checks the configuration for values that would prevent startup.
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be between 1 and 65535, got %d", c.API.Port)
	}

	if c.Library.ManifestPath == "" {
		return fmt.Errorf("library.manifest_path is required")
	}

	if c.Streaming.ChunkSize < 0 {
		return fmt.Errorf("streaming.chunk_size must not be negative, got %d", c.Streaming.ChunkSize)
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	return nil
}

// LibraryRoot returns the directory manifest file paths resolve against.
func (c *Config) LibraryRoot() string {
	if c.Library.RootPath != "" {
		return c.Library.RootPath
	}
	return filepath.Dir(c.Library.ManifestPath)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("streaming.chunk_size", 10240)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.compress", true)
}

// LoadConfig reads the config file at path, applies defaults and validates
// the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			return nil, fmt.Errorf("config file %s not found: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
