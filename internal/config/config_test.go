package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://analyzer.example.com
session:
  path: /tmp/ra.db
`)

	cfg, err := LoadConfig(path, false)
	require.NoError(t, err)

	assert.Equal(t, "https://analyzer.example.com", cfg.API.BaseURL)
	assert.Equal(t, "/tmp/ra.db", cfg.Session.Path)
	assert.Equal(t, 120, cfg.API.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Search.TopK)
}

func TestLoadConfigMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	_, err := LoadConfig(missing, false)
	require.Error(t, err)

	cfg, err := LoadConfig(missing, true)
	require.NoError(t, err)
	assert.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"base url without scheme", func(c *Config) { c.API.BaseURL = "localhost:8000" }},
		{"zero timeout", func(c *Config) { c.API.TimeoutSeconds = 0 }},
		{"no session path", func(c *Config) { c.Session.Path = "" }},
		{"top_k too large", func(c *Config) { c.Search.TopK = 11 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := writeConfig(t, "api: [unterminated")
	_, err := LoadConfig(path, false)
	assert.Error(t, err)
}
