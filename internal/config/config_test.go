package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 7*24*time.Hour, cfg.Sweep.MaxAge)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
store:
  backend: redis
redis:
  addr: redis:6379
  ttl: 48h
  lock: true
sweep:
  interval: 1h
  max_age: 72h
llm:
  provider: anthropic
  temperature: 0.2
security:
  redact_patterns:
    - '\d{3}-\d{2}-\d{4}'
`)

	cfg, err := load(path, env(map[string]string{
		"CHATBOT_REDIS_DB":  "2",
		"CHATBOT_LOG_LEVEL": "debug",
		"ANTHROPIC_API_KEY": "sk-ant",
		"GROQ_API_KEY":      "gsk-ignored",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "uploads", cfg.Server.UploadsDir, "unset keys keep their defaults")
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 48*time.Hour, cfg.Redis.TTL)
	assert.True(t, cfg.Redis.Lock)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, 72*time.Hour, cfg.Sweep.MaxAge)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-ant", cfg.LLM.APIKey)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{`\d{3}-\d{2}-\d{4}`}, cfg.Security.RedactPatterns)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "llm:\n  api_key: from-file\nsweep:\n  max_age: 1h\n")

	cfg, err := load(path, env(map[string]string{
		"CHATBOT_LLM_API_KEY":     "from-env",
		"CHATBOT_SESSION_MAX_AGE": "30m",
		"CHATBOT_SWEEP_ENABLED":   "false",
	}))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.Sweep.MaxAge)
	assert.False(t, cfg.Sweep.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("Missing File", func(t *testing.T) {
		_, err := load(filepath.Join(t.TempDir(), "nope.yaml"), env(nil))
		assert.Error(t, err)
	})

	t.Run("Unknown Key", func(t *testing.T) {
		_, err := load(writeConfig(t, "server:\n  port: 80\n"), env(nil))
		assert.Error(t, err)
	})

	t.Run("Invalid Values", func(t *testing.T) {
		_, err := load(writeConfig(t, "store:\n  backend: mongo\nsecurity:\n  encryption_key: short\n"), env(nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store.backend")
		assert.Contains(t, err.Error(), "security.encryption_key")
	})
}

func TestDecodeKey(t *testing.T) {
	hexKey := strings.Repeat("ab", 32)
	b, err := DecodeKey(hexKey)
	require.NoError(t, err)
	assert.Len(t, b, 32)

	b, err = DecodeKey("MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=")
	require.NoError(t, err)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", string(b))

	_, err = DecodeKey("deadbeef")
	assert.Error(t, err)
}
