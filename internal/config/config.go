// Package config loads mboxview configuration from TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// CacheConfig bounds the per-file decode cache.
type CacheConfig struct {
	MaxEntries int `toml:"max_entries"` // decoded messages kept per file
}

// IndexConfig tunes the boundary indexer.
type IndexConfig struct {
	MaxLineBytes int `toml:"max_line_bytes"` // scan aborts past this line length
}

// SearchConfig tunes the search orchestrator.
type SearchConfig struct {
	ProgressStep int `toml:"progress_step"` // minimum % delta between PROGRESS messages
}

// ServerConfig holds the read-only HTTP API settings.
type ServerConfig struct {
	APIPort int `toml:"api_port"`
}

type Config struct {
	Cache  CacheConfig  `toml:"cache"`
	Index  IndexConfig  `toml:"index"`
	Search SearchConfig `toml:"search"`
	Server ServerConfig `toml:"server"`

	// HomeDir is computed, not read from the file.
	HomeDir string `toml:"-"`
}

// DefaultHome returns the mboxview home directory, honoring MBOXVIEW_HOME.
func DefaultHome() string {
	if h := os.Getenv("MBOXVIEW_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mboxview"
	}
	return filepath.Join(home, ".mboxview")
}

// Load reads the configuration from path, or from
// <home>/config.toml when path is empty. A missing file yields defaults.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()
	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Cache:   CacheConfig{MaxEntries: 50},
		Index:   IndexConfig{MaxLineBytes: 32 << 20},
		Search:  SearchConfig{ProgressStep: 1},
		Server:  ServerConfig{APIPort: 8080},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
