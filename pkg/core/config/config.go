// Package config loads tidyxbrl settings from a YAML file with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// DefaultPath is where the CLI and API server look for settings.
const DefaultPath = "config/tidyxbrl.yaml"

// Config holds all runtime settings.
type Config struct {
	Fetch   FetchConfig   `yaml:"fetch"`
	Flatten FlattenConfig `yaml:"flatten"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
}

// FetchConfig controls how documents are retrieved.
type FetchConfig struct {
	UserAgent      string  `yaml:"user_agent"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimit      float64 `yaml:"rate_limit"`
}

// FlattenConfig controls decoding and flattening.
type FlattenConfig struct {
	// Prefixes treated as the default namespace (e.g. "xbrli").
	Unqualify      []string `yaml:"unqualify"`
	MaxSearchDepth int      `yaml:"max_search_depth"`
}

// StoreConfig selects the run store. An empty DatabaseURL means files under Dir.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url"`
	Dir         string `yaml:"dir"`
}

// ServerConfig configures the API server. The API reads local documents only
// under DataDir; an empty DataDir limits it to http(s) URLs.
type ServerConfig struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Fetch: FetchConfig{
			UserAgent:      "tidyxbrl/1.0 (contact@example.com)",
			TimeoutSeconds: 15,
			RateLimit:      10,
		},
		Flatten: FlattenConfig{MaxSearchDepth: 16},
		Store:   StoreConfig{Dir: ".cache/tidyxbrl/runs"},
		Server:  ServerConfig{Port: "8080"},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TIDYXBRL_USER_AGENT"); v != "" {
		c.Fetch.UserAgent = v
	}
	if v := os.Getenv("TIDYXBRL_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || secs <= 0 {
			return fmt.Errorf("invalid TIDYXBRL_TIMEOUT %q: want positive seconds", v)
		}
		c.Fetch.TimeoutSeconds = secs
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := os.Getenv("TIDYXBRL_STORE_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv("TIDYXBRL_DATA_DIR"); v != "" {
		c.Server.DataDir = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	return nil
}

// Timeout is the per-fetch timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
