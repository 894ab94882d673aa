// Package config loads the handful of build-time settings that live outside
// the skin's own XML/JSON: where the skin directory is, where to write
// output, and how to log. Uses spf13/viper trimmed to what a single-shot
// CLI batch tool needs (no cobra pflag binding, since there is no
// long-running server config surface here).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds every build-time setting.
type Config struct {
	// SkinDir is the directory containing menus.xml, widgets.xml,
	// backgrounds.xml, properties.xml, templates.xml, views.xml and the
	// user overlay JSON.
	SkinDir string `mapstructure:"skin_dir"`
	// OutputPaths is where the assembled includes document is written.
	// Multiple paths let a skin ship the same output to more than one
	// location; the C6 hash gate checks each path's includes file
	// independently.
	OutputPaths []string `mapstructure:"output_paths"`
	// UserDataPath is the JSON overlay file merged in by C5. Empty means
	// no overlay is applied.
	UserDataPath string `mapstructure:"user_data_path"`
	// HashFilePath is where C6 persists content fingerprints between runs.
	HashFilePath string `mapstructure:"hash_file_path"`
	// ScriptVersion and HostVersion are folded into the C6 fingerprint so
	// upgrading either forces a rebuild even with unchanged skin files.
	ScriptVersion string `mapstructure:"script_version"`
	HostVersion   string `mapstructure:"host_version"`
	// LogLevel is one of debug/info/warn/error.
	LogLevel string `mapstructure:"log_level"`
	// LogJSON selects structured JSON logging over the console writer.
	LogJSON bool `mapstructure:"log_json"`
	// Force skips the C6 hash-gate short circuit and always rebuilds.
	Force bool `mapstructure:"force"`
	// Container is a window container id setting (default "9000"). It is
	// loaded but no build stage reads it; menus take their container from
	// menus.xml.
	Container string `mapstructure:"container"`
}

func defaults() *Config {
	return &Config{
		HashFilePath:  ".skinshortcuts-hashes.yml",
		ScriptVersion: "0.0.0",
		HostVersion:   "0.0.0",
		LogLevel:      "info",
		Container:     "9000",
	}
}

// Load reads settings from an optional config file at path (YAML/JSON/TOML,
// whatever viper's codec pack recognizes by extension), then a
// SKINSHORTCUTS_-prefixed environment overlay, then defaults for anything
// still unset. path may be empty, in which case only environment and
// defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SKINSHORTCUTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := defaults()
	v.SetDefault("hash_file_path", cfg.HashFilePath)
	v.SetDefault("script_version", cfg.ScriptVersion)
	v.SetDefault("host_version", cfg.HostVersion)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("container", cfg.Container)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	return cfg, nil
}
