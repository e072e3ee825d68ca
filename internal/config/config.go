// Package config loads the qexpr tool configuration from a TOML file.
//
// Example:
//
//	format = "json"
//	db = "queries.db"
//	verbose = false
//
//	[validate]
//	max_depth = 64
//
// Command-line flags override file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is the config file looked up in the working directory when
// no path is given.
const DefaultFile = "qexpr.toml"

// Config is the tool configuration.
type Config struct {
	Format   string         `toml:"format" json:"format"`
	DB       string         `toml:"db" json:"db"`
	Verbose  bool           `toml:"verbose" json:"verbose"`
	Validate ValidateConfig `toml:"validate" json:"validate"`
}

// ValidateConfig holds validation policy applied by the tool on top of the
// structural rules.
type ValidateConfig struct {
	// MaxDepth rejects trees deeper than this. 0 means unlimited.
	MaxDepth int `toml:"max_depth" json:"max_depth"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Format: "text",
		DB:     "qexpr.db",
	}
}

// Load reads the config file at path.
// A missing file yields Default(); unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, len(strict.Errors))
			for i, e := range strict.Errors {
				keys[i] = strings.Join(e.Key(), ".")
			}
			return cfg, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
		var decErr *toml.DecodeError
		if errors.As(err, &decErr) {
			row, col := decErr.Position()
			return cfg, fmt.Errorf("config %s:%d:%d: %s", path, row, col, decErr.Error())
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Check(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Check reports values no command can use.
func (c Config) Check() error {
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q (must be text or json)", c.Format)
	}
	if c.Validate.MaxDepth < 0 {
		return fmt.Errorf("validate.max_depth must not be negative, got %d", c.Validate.MaxDepth)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Save writes the configuration to path, creating parent directories.
func (c Config) Save(path string) error {
	data, err := c.Encode()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
