// Package config loads graphrag configuration from graphrag.json with
// environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all graphrag configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `json:"llm"`

	// Result cache
	Cache CacheConfig `json:"cache"`

	// Self-refinement loop
	Refine RefineConfig `json:"refine"`

	// Graph store
	Store StoreConfig `json:"store"`

	// Few-shot examples
	Examples ExamplesConfig `json:"examples"`

	// Logging
	Logging LoggingConfig `json:"logging"`
}

// LLMConfig configures the generation client.
type LLMConfig struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
	Timeout string `json:"timeout"`
}

// CacheConfig configures the bounded result cache.
type CacheConfig struct {
	Capacity int `json:"capacity"`
}

// RefineConfig configures the refinement loop.
type RefineConfig struct {
	MaxAttempts int `json:"max_attempts"`
}

// StoreConfig configures the embedded graph store.
type StoreConfig struct {
	DatabasePath string `json:"database_path"`
}

// ExamplesConfig configures few-shot example selection.
type ExamplesConfig struct {
	CorpusPath string `json:"corpus_path"`
	SelectK    int    `json:"select_k"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories,omitempty"`
	Level      string          `json:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "60s",
		},
		Cache: CacheConfig{
			Capacity: 100,
		},
		Refine: RefineConfig{
			MaxAttempts: 3,
		},
		Store: StoreConfig{
			DatabasePath: "data/graphrag.db",
		},
		Examples: ExamplesConfig{
			CorpusPath: "data/examples.yaml",
			SelectK:    3,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a JSON file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save writes configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("GRAPHRAG_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if path := os.Getenv("GRAPHRAG_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// Validate checks settings that have no sensible zero value.
func (c *Config) Validate() error {
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache capacity must be at least 1, got %d", c.Cache.Capacity)
	}
	if c.Refine.MaxAttempts < 1 {
		return fmt.Errorf("refine max_attempts must be at least 1, got %d", c.Refine.MaxAttempts)
	}
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store database_path must be set")
	}
	return nil
}
