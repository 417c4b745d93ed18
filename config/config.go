// Package config loads ilparse settings from a TOML or YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Parser    ParserConfig    `toml:"parser" yaml:"parser"`
	Log       LogConfig       `toml:"log" yaml:"log"`
	Workspace WorkspaceConfig `toml:"workspace" yaml:"workspace"`
}

type ParserConfig struct {
	Timeout        Duration `toml:"timeout" yaml:"timeout"`
	OperationLimit int      `toml:"operation_limit" yaml:"operation_limit"`
	MaxVersions    int      `toml:"max_versions" yaml:"max_versions"`
}

type LogConfig struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	File      string `toml:"file" yaml:"file"`
}

type WorkspaceConfig struct {
	Root       string   `toml:"root" yaml:"root"`
	Extensions []string `toml:"extensions" yaml:"extensions"`
	Watch      bool     `toml:"watch" yaml:"watch"`
}

// Duration wraps time.Duration for text-based config formats.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the settings used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a config file, choosing the format by extension: .yaml and
// .yml are YAML, anything else TOML. Environment variables in the path
// are expanded.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		_, err = toml.Decode(string(data), &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Parser.Timeout.Duration == 0 {
		c.Parser.Timeout.Duration = 5 * time.Second
	}
	if c.Parser.MaxVersions == 0 {
		c.Parser.MaxVersions = 6
	}
	if c.Workspace.Root == "" {
		c.Workspace.Root = "."
	}
	if len(c.Workspace.Extensions) == 0 {
		c.Workspace.Extensions = []string{".il"}
	}
	c.Workspace.Root = os.ExpandEnv(c.Workspace.Root)
	c.Log.File = os.ExpandEnv(c.Log.File)
}

func (c *Config) Validate() error {
	switch {
	case c.Parser.Timeout.Duration < 0:
		return fmt.Errorf("parser.timeout must not be negative")
	case c.Parser.OperationLimit < 0:
		return fmt.Errorf("parser.operation_limit must not be negative")
	case c.Parser.MaxVersions < 1:
		return fmt.Errorf("parser.max_versions must be at least 1")
	}
	for _, ext := range c.Workspace.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("workspace.extensions: %q does not start with a dot", ext)
		}
	}
	return nil
}

// Matches reports whether path has one of the workspace extensions.
func (w WorkspaceConfig) Matches(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range w.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
