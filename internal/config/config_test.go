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
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "./data/chaptertran.db", cfg.DBPath)
	assert.Equal(t, 2500, cfg.Chunking.Limit)
	assert.Equal(t, 5000, cfg.Chunking.RelayLimit)
	assert.Equal(t, "ollama", cfg.Backend)
	assert.Equal(t, "deepseek-r1:8b", cfg.Ollama.Model)
	assert.InDelta(t, 0.3, cfg.Ollama.Temperature, 1e-9)
	assert.InDelta(t, 0.9, cfg.Ollama.TopP, 1e-9)
	assert.Equal(t, 1, cfg.Orchestrator.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Orchestrator.RetryDelay)
	assert.Equal(t, 20, cfg.Relay.Countdown)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: openrouter
chunking:
  limit: 1200
openrouter:
  model: some/model
orchestrator:
  max_attempts: 3
  retry_delay: 500ms
`), 0o644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.Backend)
	assert.Equal(t, 1200, cfg.Chunking.Limit)
	assert.Equal(t, "some/model", cfg.OpenRouter.Model)
	assert.Equal(t, 3, cfg.Orchestrator.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Orchestrator.RetryDelay)
	assert.Equal(t, 5000, cfg.Chunking.RelayLimit, "unset keys keep defaults")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHAPTERTRAN_CHUNKING_LIMIT", "800")
	t.Setenv("OLLAMA_MODEL", "qwen2.5:7b")
	t.Setenv("OPENROUTER_API_KEY", "sk-test")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Chunking.Limit)
	assert.Equal(t, "qwen2.5:7b", cfg.Ollama.Model)
	assert.Equal(t, "sk-test", cfg.OpenRouter.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHAPTERTRAN_TEST_DOTENV=yes\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CHAPTERTRAN_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "yes", os.Getenv("CHAPTERTRAN_TEST_DOTENV"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
	assert.NoError(t, LoadDotEnv(""))
}

func TestConfig_Service(t *testing.T) {
	cfg := &Config{}
	cfg.Ollama.Model = "m"

	svc, err := cfg.Service("ollama")
	require.NoError(t, err)
	assert.Equal(t, "m", svc.Model)

	_, err = cfg.Service("deepl")
	assert.Error(t, err)
}
