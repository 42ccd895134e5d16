// Package config reads the optional .scano.toml project file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/jward/scano/internal/keyword"
)

// FileName is the project configuration file looked up in the scan root.
const FileName = ".scano.toml"

// DefaultIgnores are always excluded from discovery.
var DefaultIgnores = []string{"node_modules/**", "dist/**"}

// Config is the project configuration. Zero values mean "use the default".
type Config struct {
	Ignore    []string          `toml:"ignore"`
	Registry  string            `toml:"registry"`
	OutputDir string            `toml:"output_dir"`
	HistoryDB string            `toml:"history_db"`
	Rules     []string          `toml:"rules"`
	Overrides map[string]string `toml:"overrides"`
	Summ      Summ              `toml:"summ"`

	// Path is the file the config was read from, empty when none existed.
	Path string `toml:"-"`
}

// Summ configures the report summarization client.
type Summ struct {
	Endpoint  string `toml:"endpoint"`
	APIKeyEnv string `toml:"api_key_env"`
}

// DefaultSummEndpoint is used when no endpoint is configured.
const DefaultSummEndpoint = "https://hgm3emjv2g.execute-api.us-east-1.amazonaws.com/prod/scan"

// DefaultAPIKeyEnv names the environment variable holding the summarization
// API key.
const DefaultAPIKeyEnv = "SCANO_SUMM_API_KEY"

// Load reads FileName from dir. A missing file yields an empty Config.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads a config file. A missing file yields an empty Config.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	cfg.Path = path
	cfg.resolvePaths(filepath.Dir(path))
	return &cfg, nil
}

// resolvePaths makes file references relative to the config's directory.
func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Registry = abs(c.Registry)
	c.OutputDir = abs(c.OutputDir)
	c.HistoryDB = abs(c.HistoryDB)
	for i := range c.Rules {
		c.Rules[i] = abs(c.Rules[i])
	}
}

// KeywordOverrides returns the [overrides] table sorted by keyword so that
// index construction is deterministic.
func (c *Config) KeywordOverrides() []keyword.Override {
	keys := make([]string, 0, len(c.Overrides))
	for k := range c.Overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]keyword.Override, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyword.Override{Keyword: k, FeatureID: c.Overrides[k]})
	}
	return out
}

// IgnorePatterns returns the default ignores followed by configured ones.
func (c *Config) IgnorePatterns() []string {
	out := append([]string{}, DefaultIgnores...)
	return append(out, c.Ignore...)
}

// SummEndpoint returns the configured endpoint or the default.
func (c *Config) SummEndpoint() string {
	if c.Summ.Endpoint != "" {
		return c.Summ.Endpoint
	}
	return DefaultSummEndpoint
}

// SummAPIKey reads the API key from the configured environment variable.
func (c *Config) SummAPIKey() string {
	name := c.Summ.APIKeyEnv
	if name == "" {
		name = DefaultAPIKeyEnv
	}
	return os.Getenv(name)
}
