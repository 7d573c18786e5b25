package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_APIKey(t *testing.T) {
	t.Run("GEMINI_API_KEY sets the key", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")

		cfg := DefaultConfig()
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-key", cfg.LLM.APIKey)
	})

	t.Run("env wins over file value", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "env-key")

		cfg := DefaultConfig()
		cfg.LLM.APIKey = "file-key"
		cfg.applyEnvOverrides()

		assert.Equal(t, "env-key", cfg.LLM.APIKey)
	})

	t.Run("empty env leaves file value", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")

		cfg := DefaultConfig()
		cfg.LLM.APIKey = "file-key"
		cfg.applyEnvOverrides()

		assert.Equal(t, "file-key", cfg.LLM.APIKey)
	})
}

func TestEnvOverrides_ModelAndDB(t *testing.T) {
	t.Setenv("GRAPHRAG_MODEL", "gemini-2.5-pro")
	t.Setenv("GRAPHRAG_DB", "/tmp/alt.db")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	assert.Equal(t, "/tmp/alt.db", cfg.Store.DatabasePath)
}
