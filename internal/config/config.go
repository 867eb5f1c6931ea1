// Package config loads the server configuration from an optional YAML file
// and environment overrides.
package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	SQL      SQLConfig      `mapstructure:"sql" yaml:"sql"`
	Sweep    SweepConfig    `mapstructure:"sweep" yaml:"sweep"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Security SecurityConfig `mapstructure:"security" yaml:"security"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	UploadsDir      string        `mapstructure:"uploads_dir" yaml:"uploads_dir"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	// Lock enables the redis distributed session lock.
	Lock bool `mapstructure:"lock" yaml:"lock"`
}

type SQLConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

type SweepConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxAge   time.Duration `mapstructure:"max_age" yaml:"max_age"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens   int64   `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
}

type SecurityConfig struct {
	// EncryptionKey is a 32-byte AES key, hex or base64 encoded. Empty disables encryption at rest.
	EncryptionKey  string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys   []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	RedactPatterns []string `mapstructure:"redact_patterns" yaml:"redact_patterns"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			UploadsDir:      "uploads",
			MaxUploadBytes:  32 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{Backend: BackendFile, Dir: ".chatbot"},
		Redis: RedisConfig{Addr: "localhost:6379", Prefix: "chatbot:session:"},
		SQL:   SQLConfig{Driver: "sqlite", DSN: "chatbot.db"},
		Sweep: SweepConfig{
			Enabled:  true,
			Interval: 24 * time.Hour,
			MaxAge:   7 * 24 * time.Hour,
		},
		LLM: LLMConfig{
			Provider:    "groq",
			MaxTokens:   800,
			Temperature: 0.7,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// envBindings maps environment variables to configuration keys.
var envBindings = map[string]string{
	"CHATBOT_ADDR":             "server.addr",
	"CHATBOT_UPLOADS_DIR":      "server.uploads_dir",
	"CHATBOT_MAX_UPLOAD_BYTES": "server.max_upload_bytes",
	"CHATBOT_STORE":            "store.backend",
	"CHATBOT_STORE_DIR":        "store.dir",
	"CHATBOT_REDIS_ADDR":       "redis.addr",
	"CHATBOT_REDIS_PASSWORD":   "redis.password",
	"CHATBOT_REDIS_DB":         "redis.db",
	"CHATBOT_REDIS_PREFIX":     "redis.prefix",
	"CHATBOT_REDIS_LOCK":       "redis.lock",
	"CHATBOT_SQL_DRIVER":       "sql.driver",
	"CHATBOT_SQL_DSN":          "sql.dsn",
	"CHATBOT_SWEEP_ENABLED":    "sweep.enabled",
	"CHATBOT_SWEEP_INTERVAL":   "sweep.interval",
	"CHATBOT_SESSION_MAX_AGE":  "sweep.max_age",
	"CHATBOT_LLM_PROVIDER":     "llm.provider",
	"CHATBOT_LLM_MODEL":        "llm.model",
	"CHATBOT_LLM_API_KEY":      "llm.api_key",
	"CHATBOT_LLM_BASE_URL":     "llm.base_url",
	"CHATBOT_ENCRYPTION_KEY":   "security.encryption_key",
	"CHATBOT_LOG_LEVEL":        "log.level",
	"CHATBOT_LOG_FORMAT":       "log.format",
}

// providerKeys are the conventional per-provider API key variables, used when llm.api_key is unset.
var providerKeys = map[string]string{
	"groq":      "GROQ_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	raw := map[string]any{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if raw == nil {
			raw = map[string]any{}
		}
	}

	for env, key := range envBindings {
		if v, ok := lookup(env); ok {
			setPath(raw, key, v)
		}
	}

	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		if env, ok := providerKeys[strings.ToLower(cfg.LLM.Provider)]; ok {
			cfg.LLM.APIKey, _ = lookup(env)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setPath stores value under a dotted key, creating nested maps as needed.
func setPath(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendFile, BackendMemory, BackendRedis, BackendSQL:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.Backend == BackendSQL && c.SQL.DSN == "" {
		errs = append(errs, errors.New("sql.dsn: required for the sql backend"))
	}
	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		errs = append(errs, errors.New("sweep.interval: must be positive"))
	}
	if c.Sweep.MaxAge < 0 {
		errs = append(errs, errors.New("sweep.max_age: must not be negative"))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, errors.New("llm.max_tokens: must be positive"))
	}
	if c.Security.EncryptionKey != "" {
		if _, err := DecodeKey(c.Security.EncryptionKey); err != nil {
			errs = append(errs, fmt.Errorf("security.encryption_key: %w", err))
		}
	}
	for i, p := range c.Security.RedactPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("security.redact_patterns[%d]: %w", i, err))
		}
	}
	for i, k := range c.Security.FallbackKeys {
		if _, err := DecodeKey(k); err != nil {
			errs = append(errs, fmt.Errorf("security.fallback_keys[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// DecodeKey accepts a 32-byte key as hex or standard base64.
func DecodeKey(s string) ([]byte, error) {
	if b, err := hex.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) == 32 {
		return b, nil
	}
	return nil, errors.New("must be 32 bytes, hex or base64 encoded")
}
