package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "Bridgehost" {
		t.Errorf("Name = %q, want default", cfg.Name)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.StoragePath == "" {
		t.Error("StoragePath default is empty")
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
name = "Home Bridge"
plugin_paths = ["/opt/plugins"]
disabled_plugins = ["@acme/bridgehost-garden"]
storage_path = "/var/lib/bridgehost"
log_level = "debug"

[[accessories]]
accessory = "Lightbulb"
plugin = "@acme/bridgehost-lights"
name = "Desk Lamp"

[accessories.options]
pin = 4

[[platforms]]
platform = "Lights"

[platforms.options]
host = "10.0.0.2"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "Home Bridge" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if len(cfg.PluginPaths) != 1 || cfg.PluginPaths[0] != "/opt/plugins" {
		t.Errorf("PluginPaths = %v", cfg.PluginPaths)
	}
	if len(cfg.DisabledPlugins) != 1 {
		t.Errorf("DisabledPlugins = %v", cfg.DisabledPlugins)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}

	if len(cfg.Accessories) != 1 {
		t.Fatalf("Accessories len = %d, want 1", len(cfg.Accessories))
	}
	acc := cfg.Accessories[0]
	if acc.Accessory != "Lightbulb" || acc.Plugin != "@acme/bridgehost-lights" || acc.Name != "Desk Lamp" {
		t.Errorf("accessory entry = %+v", acc)
	}
	if acc.Options["pin"] != int64(4) {
		t.Errorf("accessory options = %v", acc.Options)
	}

	if len(cfg.Platforms) != 1 {
		t.Fatalf("Platforms len = %d, want 1", len(cfg.Platforms))
	}
	if cfg.Platforms[0].Options["host"] != "10.0.0.2" {
		t.Errorf("platform options = %v", cfg.Platforms[0].Options)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", `name = `},
		{"bad log level", `log_level = "loud"`},
		{"accessory without name", "[[accessories]]\nname = \"x\""},
		{"platform without name", "[[platforms]]\nname = \"x\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
