// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all projtree configuration.
type Config struct {
	Store Store `yaml:"store"`
	UI    UI    `yaml:"ui"`
	Log   Log   `yaml:"log"`
}

// Store holds workspace file settings.
type Store struct {
	Path     string        `yaml:"path"`
	Watch    bool          `yaml:"watch"`    // Reload on external file changes
	Debounce time.Duration `yaml:"debounce"` // Quiet period before reloading
}

// UI holds tree rendering settings.
type UI struct {
	TreePadding  int    `yaml:"tree_padding"`  // Indent columns per level
	UnnamedLabel string `yaml:"unnamed_label"` // Shown for projects with an empty name
}

// Log holds diagnostics logging settings.
type Log struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
	File  string `yaml:"file"`  // Empty disables logging
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: Store{
			Path:     ".projtree/projects.json",
			Watch:    true,
			Debounce: 250 * time.Millisecond,
		},
		UI: UI{
			TreePadding:  2,
			UnnamedLabel: "(unnamed)",
		},
		Log: Log{
			Level: "info",
			File:  ".projtree/projtree.log",
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("config: store.path cannot be empty")
	}
	if c.Store.Debounce < 0 {
		return fmt.Errorf("config: store.debounce must be non-negative, got %v", c.Store.Debounce)
	}
	if c.UI.TreePadding < 0 || c.UI.TreePadding > 16 {
		return fmt.Errorf("config: ui.tree_padding must be between 0 and 16, got %d", c.UI.TreePadding)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return fmt.Errorf("config: log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: PROJTREE_STORE, PROJTREE_WATCH, PROJTREE_LOG_LEVEL, PROJTREE_LOG_FILE.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PROJTREE_STORE"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("PROJTREE_WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid PROJTREE_WATCH %q: %w", v, err)
		}
		c.Store.Watch = b
	}
	if v := os.Getenv("PROJTREE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv("PROJTREE_LOG_FILE"); ok {
		c.Log.File = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Store *rawStore `yaml:"store"`
	UI    *rawUI    `yaml:"ui"`
	Log   *rawLog   `yaml:"log"`
}

type rawStore struct {
	Path     *string        `yaml:"path"`
	Watch    *bool          `yaml:"watch"`
	Debounce *time.Duration `yaml:"debounce"`
}

type rawUI struct {
	TreePadding  *int    `yaml:"tree_padding"`
	UnnamedLabel *string `yaml:"unnamed_label"`
}

type rawLog struct {
	Level *string `yaml:"level"`
	File  *string `yaml:"file"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if layer.Store != nil {
		if layer.Store.Path != nil {
			c.Store.Path = *layer.Store.Path
		}
		if layer.Store.Watch != nil {
			c.Store.Watch = *layer.Store.Watch
		}
		if layer.Store.Debounce != nil {
			c.Store.Debounce = *layer.Store.Debounce
		}
	}
	if layer.UI != nil {
		if layer.UI.TreePadding != nil {
			c.UI.TreePadding = *layer.UI.TreePadding
		}
		if layer.UI.UnnamedLabel != nil {
			c.UI.UnnamedLabel = *layer.UI.UnnamedLabel
		}
	}
	if layer.Log != nil {
		if layer.Log.Level != nil {
			c.Log.Level = *layer.Log.Level
		}
		if layer.Log.File != nil {
			c.Log.File = *layer.Log.File
		}
	}
}
