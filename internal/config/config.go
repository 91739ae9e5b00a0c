// Package config loads the interpreter's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the global vortex configuration.
type Config struct {
	Prompt              string         `yaml:"prompt"`
	ProcessNameFallback string         `yaml:"process_name_fallback" validate:"required"`
	Lister              string         `yaml:"lister" validate:"oneof=proc ps"`
	Color               bool           `yaml:"color"`
	Limits              LimitsConfig   `yaml:"limits"`
	History             HistoryConfig  `yaml:"history"`
	Readline            ReadlineConfig `yaml:"readline"`
}

// LimitsConfig bounds interpreter input.
type LimitsConfig struct {
	MaxLine int `yaml:"max_line" validate:"gte=16"`
}

// HistoryConfig controls the run-history log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// ReadlineConfig controls the interactive line editor.
type ReadlineConfig struct {
	HistoryFile string `yaml:"history_file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	share := filepath.Join(home, ".local", "share", "vortex")
	return &Config{
		Prompt:              "vortex$ ",
		ProcessNameFallback: "vortex",
		Lister:              "proc",
		Color:               true,
		Limits: LimitsConfig{
			MaxLine: 256,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(share, "history.jsonl"),
		},
		Readline: ReadlineConfig{
			HistoryFile: filepath.Join(share, "readline.history"),
		},
	}
}

// Load reads the config from the standard location (~/.config/vortex/config.yaml).
// If the file doesn't exist, returns the default config.
func Load() (*Config, error) {
	if _, err := os.UserHomeDir(); err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config from the given path. A missing file yields the
// defaults; a present file must parse and validate.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.History.Path = expandHome(cfg.History.Path)
	cfg.Readline.HistoryFile = expandHome(cfg.Readline.HistoryFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ConfigPath returns the standard config file path.
func ConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "vortex", "config.yaml")
}

func expandHome(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, p[1:])
}
