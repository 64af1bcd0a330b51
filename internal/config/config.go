// Package config provides configuration loading for the sync backend.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for the server.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Sync     SyncConfig     `toml:"sync"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Listen string `toml:"listen"` // host:port
}

// DatabaseConfig holds settings for the SQLite store.
type DatabaseConfig struct {
	DataDir string `toml:"data_dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// SyncConfig holds change-feed pagination settings.
type SyncConfig struct {
	// DefaultPageSize is used when a client omits the limit parameter.
	// Must be within [1, 1000]; the upper bound itself is fixed by the
	// pull contract and is not configurable.
	DefaultPageSize int `toml:"default_page_size"`
}

// NewConfig creates a Config populated with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		Server: ServerConfig{
			Listen: "127.0.0.1:8090",
		},
		Database: DatabaseConfig{
			DataDir: filepath.Join(baseDir, "data"),
		},
		Log: LogConfig{
			Level: "info",
		},
		Sync: SyncConfig{
			DefaultPageSize: 500,
		},
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Database.DataDir == "" {
		return fmt.Errorf("database.data_dir must not be empty")
	}
	if c.Sync.DefaultPageSize < 1 || c.Sync.DefaultPageSize > 1000 {
		return fmt.Errorf("sync.default_page_size must be in [1, 1000], got %d", c.Sync.DefaultPageSize)
	}
	return nil
}

// Read decodes a Config from the provided reader. Fields absent from the
// document keep their defaults.
func Read(r io.Reader, baseDir string) (*Config, error) {
	cfg := NewConfig(baseDir)
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()
	return Read(f, filepath.Dir(path))
}

// Init writes a default config file at path, failing if one already exists.
func Init(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()
	return Write(f, cfg)
}
