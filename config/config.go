// Package config provides configuration loading and management for contratAI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete contratAI configuration
type Config struct {
	Ollama   OllamaConfig   `yaml:"ollama"`
	NATS     NATSConfig     `yaml:"nats"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// OllamaConfig configures the inference backend
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434)
	BaseURL string `yaml:"base_url"`
	// Model is the model name sent in generate requests
	Model string `yaml:"model"`
	// MaxPromptChars caps the prompt size after sanitization.
	// Values below 1000 are clamped up to 1000.
	MaxPromptChars int `yaml:"max_prompt_chars"`
	// ConnectTimeout bounds connection establishment
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// ReadTimeout bounds the full request/response exchange. Inference
	// latency scales with prompt and response size, so this dominates.
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
}

// DatabaseConfig configures contract/user persistence
type DatabaseConfig struct {
	// Path is the SQLite database file path
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus exposition endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// MinPromptChars is the floor applied to MaxPromptChars.
const MinPromptChars = 1000

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Ollama: OllamaConfig{
			BaseURL:        "http://localhost:11434",
			Model:          "gpt-oss:20b",
			MaxPromptChars: 15000,
			ConnectTimeout: 30 * time.Second,
			ReadTimeout:    300 * time.Second,
		},
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Database: DatabaseConfig{
			Path: "contratai.db",
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
	}
}

// Validate checks that the configuration is valid. MaxPromptChars below the
// floor is clamped rather than rejected.
func (c *Config) Validate() error {
	if c.Ollama.BaseURL == "" {
		return fmt.Errorf("ollama.base_url is required")
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("ollama.model is required")
	}
	if c.Ollama.ConnectTimeout <= 0 {
		return fmt.Errorf("ollama.connect_timeout must be positive")
	}
	if c.Ollama.ReadTimeout <= 0 {
		return fmt.Errorf("ollama.read_timeout must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Ollama.MaxPromptChars < MinPromptChars {
		c.Ollama.MaxPromptChars = MinPromptChars
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge overlays non-zero fields from other onto c
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.Ollama.BaseURL != "" {
		c.Ollama.BaseURL = other.Ollama.BaseURL
	}
	if other.Ollama.Model != "" {
		c.Ollama.Model = other.Ollama.Model
	}
	if other.Ollama.MaxPromptChars != 0 {
		c.Ollama.MaxPromptChars = other.Ollama.MaxPromptChars
	}
	if other.Ollama.ConnectTimeout != 0 {
		c.Ollama.ConnectTimeout = other.Ollama.ConnectTimeout
	}
	if other.Ollama.ReadTimeout != 0 {
		c.Ollama.ReadTimeout = other.Ollama.ReadTimeout
	}
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		// A layer that names a server also decides the embedded flag.
		c.NATS.Embedded = other.NATS.Embedded
	}
	if other.Database.Path != "" {
		c.Database.Path = other.Database.Path
	}
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
