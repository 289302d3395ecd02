// Package config loads CLI configuration from an optional JSONC file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tailscale/hujson"
)

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigInvalid      = errors.New("invalid config")
)

// Config holds all CLI configuration options.
type Config struct {
	LogLevel    string `json:"log_level,omitempty"`
	Pretty      *bool  `json:"pretty,omitempty"`
	HistoryFile string `json:"history_file,omitempty"`
	// Seed lists attributes committed to the session before the REPL starts.
	Seed map[string]any `json:"seed,omitempty"`
}

// Default returns the default configuration.
func Default() Config {
	pretty := true
	return Config{
		LogLevel:    "info",
		Pretty:      &pretty,
		HistoryFile: defaultHistoryPath(),
	}
}

// PrettyLogs reports whether console logs should be human formatted.
func (c Config) PrettyLogs() bool {
	return c.Pretty == nil || *c.Pretty
}

// DefaultPath returns $XDG_CONFIG_HOME/shadowkv/config.json, falling back to
// ~/.config/shadowkv/config.json. It returns "" if neither can be resolved.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shadowkv", "config.json")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "shadowkv", "config.json")
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".shadowkv_history")
}

// Load returns the defaults merged with the file at path. An empty path means
// DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	mustExist := path != ""
	if path == "" {
		path = DefaultPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, fmt.Errorf("%w: %s", errConfigFileNotFound, path)
			}
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	fileCfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	return Merge(cfg, fileCfg), nil
}

// Parse decodes JSONC (JSON with comments and trailing commas) and validates
// the result.
func Parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks fields that have a closed set of values.
func Validate(cfg Config) error {
	if cfg.LogLevel == "" {
		return nil
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return fmt.Errorf("log_level %q: %w", cfg.LogLevel, err)
	}
	return nil
}

// Merge returns base with every field set in overlay applied on top. Seed
// maps are merged key by key.
func Merge(base, overlay Config) Config {
	if overlay.LogLevel != "" {
		base.LogLevel = strings.ToLower(overlay.LogLevel)
	}
	if overlay.Pretty != nil {
		base.Pretty = overlay.Pretty
	}
	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}
	if len(overlay.Seed) > 0 {
		seed := make(map[string]any, len(base.Seed)+len(overlay.Seed))
		for k, v := range base.Seed {
			seed[k] = v
		}
		for k, v := range overlay.Seed {
			seed[k] = v
		}
		base.Seed = seed
	}
	return base
}
