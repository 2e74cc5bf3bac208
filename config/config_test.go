package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "gpt-oss:20b", cfg.Ollama.Model)
	assert.Equal(t, 15000, cfg.Ollama.MaxPromptChars)
	assert.Equal(t, 30*time.Second, cfg.Ollama.ConnectTimeout)
	assert.Equal(t, 300*time.Second, cfg.Ollama.ReadTimeout)
	assert.True(t, cfg.NATS.Embedded)
	assert.Equal(t, "contratai.db", cfg.Database.Path)

	require.NoError(t, cfg.Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing base url", func(c *Config) { c.Ollama.BaseURL = "" }, "ollama.base_url"},
		{"missing model", func(c *Config) { c.Ollama.Model = "" }, "ollama.model"},
		{"zero connect timeout", func(c *Config) { c.Ollama.ConnectTimeout = 0 }, "ollama.connect_timeout"},
		{"zero read timeout", func(c *Config) { c.Ollama.ReadTimeout = 0 }, "ollama.read_timeout"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ClampsMaxPromptChars(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ollama.MaxPromptChars = 10

	require.NoError(t, cfg.Validate())
	assert.Equal(t, MinPromptChars, cfg.Ollama.MaxPromptChars)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contratai.yaml")

	content := `
ollama:
  base_url: http://inference.internal:11434
  model: llama3
  max_prompt_chars: 8000
nats:
  url: nats://localhost:4222
  embedded: false
database:
  path: /var/lib/contratai/contracts.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://inference.internal:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3", cfg.Ollama.Model)
	assert.Equal(t, 8000, cfg.Ollama.MaxPromptChars)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.False(t, cfg.NATS.Embedded)
	assert.Equal(t, "/var/lib/contratai/contracts.db", cfg.Database.Path)
	// Unset fields keep defaults
	assert.Equal(t, 300*time.Second, cfg.Ollama.ReadTimeout)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	overlay := &Config{}
	overlay.Ollama.Model = "mistral"
	overlay.NATS.URL = "nats://broker:4222"
	overlay.Metrics.Addr = ":9102"

	base.Merge(overlay)

	assert.Equal(t, "mistral", base.Ollama.Model)
	assert.Equal(t, "nats://broker:4222", base.NATS.URL)
	assert.Equal(t, ":9102", base.Metrics.Addr)
	// Untouched fields survive
	assert.Equal(t, "http://localhost:11434", base.Ollama.BaseURL)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Ollama.Model = "roundtrip-model"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip-model", loaded.Ollama.Model)
}
