package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/prospector")

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.ListenAddr)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, "postgres://localhost/prospector", cfg.DatabaseURL)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.Scrape.Timeout)
	assert.Equal(t, 500, cfg.Scrape.SnippetWords)
	assert.Equal(t, 4, cfg.Worker.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Worker.BackoffInitial)
	assert.Equal(t, "demo-user", cfg.Auth.DefaultUser)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PROSPECTOR_STORE_DRIVER", "memory")
	t.Setenv("PROSPECTOR_LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("SCRAPE_TIMEOUT", "15s")
	t.Setenv("PROSPECTOR_WORKER_CONCURRENCY", "8")

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "g-key", cfg.LLM.APIKey())
	assert.Equal(t, 15*time.Second, cfg.Scrape.Timeout)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.NoError(t, cfg.RequireLLM())
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROSPECTOR_STORE_DRIVER", "postgres")

	v, err := NewViper("")
	require.NoError(t, err)
	_, err = Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL")
}

func TestLoad_InvalidProvider(t *testing.T) {
	t.Setenv("PROSPECTOR_STORE_DRIVER", "memory")
	t.Setenv("PROSPECTOR_LLM_PROVIDER", "llama")

	v, err := NewViper("")
	require.NoError(t, err)
	_, err = Load(v)
	assert.Error(t, err)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prospector.yaml")
	content := "store_driver: memory\nlisten_addr: \":9090\"\nworker:\n  max_attempts: 7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 7, cfg.Worker.MaxAttempts)
}

func TestRequireLLM_MissingKey(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: "anthropic"}}
	assert.Error(t, cfg.RequireLLM())
}
