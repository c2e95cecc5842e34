package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// Config represents the application configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Cache   CacheConfig   `yaml:"cache"`
	Search  SearchConfig  `yaml:"search"`
	Metrics MetricsConfig `yaml:"metrics"`
	Export  ExportConfig  `yaml:"export"`
}

// APIConfig represents the Requirement Analyzer backend configuration
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SessionConfig represents the local session store configuration
type SessionConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig represents the in-process cache configuration
type CacheConfig struct {
	MaxCostBytes          int64 `yaml:"max_cost_bytes"`
	CredentialsTTLSeconds int   `yaml:"credentials_ttl_seconds"`
}

// SearchConfig represents semantic search configuration
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// MetricsConfig represents metrics output configuration
type MetricsConfig struct {
	// Textfile is written after every command when set, in the node_exporter
	// textfile collector format.
	Textfile string `yaml:"textfile"`
}

// ExportConfig represents export configuration
type ExportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// Default returns a configuration pointing at a local backend
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8000",
			TimeoutSeconds: 120,
		},
		Session: SessionConfig{
			Path: defaultSessionPath(),
		},
		Cache: CacheConfig{
			MaxCostBytes:          1 << 20,
			CredentialsTTLSeconds: 300,
		},
		Search: SearchConfig{
			TopK: 5,
		},
		Export: ExportConfig{
			OutputDir: "output",
		},
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".requirement-analyzer", "session.db")
	}
	return filepath.Join(dir, "requirement-analyzer", "session.db")
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// A missing file is not an error when optional is true.
func LoadConfig(configPath string, optional bool) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case optional && errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}

	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("API base URL must start with http:// or https://")
	}

	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("API timeout must be positive")
	}

	if c.Session.Path == "" {
		return fmt.Errorf("session path is required")
	}

	if c.Cache.MaxCostBytes <= 0 {
		return fmt.Errorf("cache max cost must be positive")
	}

	if c.Search.TopK < 1 || c.Search.TopK > 10 {
		return fmt.Errorf("search top_k must be between 1 and 10")
	}

	return nil
}
