// Package config loads the bridge configuration from a TOML file and
// fills in sensible defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the config file looked up inside the storage
// directory when no explicit path is given.
const DefaultFileName = "bridgehost.toml"

// Config is the top-level bridge configuration.
type Config struct {
	// Name identifies this bridge instance in logs.
	Name string `toml:"name"`

	// PluginPaths lists directories scanned for installed plugins. When
	// empty the loader falls back to its built-in search paths.
	PluginPaths []string `toml:"plugin_paths"`

	// DisabledPlugins lists plugin identifiers that load but never
	// initialize.
	DisabledPlugins []string `toml:"disabled_plugins"`

	// StoragePath is the directory holding the accessory cache.
	StoragePath string `toml:"storage_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// Accessories configures standalone accessory instances.
	Accessories []AccessoryConfig `toml:"accessories"`

	// Platforms configures platform instances.
	Platforms []PlatformConfig `toml:"platforms"`
}

// AccessoryConfig is one configured accessory entry. Accessory names the
// registered constructor, Plugin the providing plugin when the bare name
// is ambiguous.
type AccessoryConfig struct {
	Accessory string         `toml:"accessory"`
	Plugin    string         `toml:"plugin"`
	Name      string         `toml:"name"`
	Options   map[string]any `toml:"options"`
}

// PlatformConfig is one configured platform entry.
type PlatformConfig struct {
	Platform string         `toml:"platform"`
	Plugin   string         `toml:"plugin"`
	Name     string         `toml:"name"`
	Options  map[string]any `toml:"options"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Name:        "Bridgehost",
		StoragePath: defaultStoragePath(),
		LogLevel:    "info",
	}
}

// Load reads a TOML config file and overlays it on the defaults. A
// missing file yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	for i, acc := range c.Accessories {
		if acc.Accessory == "" {
			return fmt.Errorf("accessories[%d]: missing accessory name", i)
		}
	}
	for i, plat := range c.Platforms {
		if plat.Platform == "" {
			return fmt.Errorf("platforms[%d]: missing platform name", i)
		}
	}
	return nil
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bridgehost"
	}
	return filepath.Join(home, ".bridgehost")
}
