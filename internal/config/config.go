// Package config provides configuration management for Vettore.
//
// Values are resolved in layers: built-in defaults, an optional YAML file,
// then environment variables (optionally seeded from a .env file). Command
// line flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported embedding backends.
const (
	BackendTEI    = "tei"
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// DefaultModel is the multilingual sentence-embedding model served by default.
const DefaultModel = "sentence-transformers/LaBSE"

// defaultModels maps each backend to the model used when none is configured.
var defaultModels = map[string]string{
	BackendTEI:    DefaultModel,
	BackendOllama: "nomic-embed-text",
	BackendOpenAI: "text-embedding-3-small",
	BackendGemini: "text-embedding-004",
}

// providerKeyEnv names the conventional API key variable of each hosted backend.
var providerKeyEnv = map[string]string{
	BackendOpenAI: "OPENAI_API_KEY",
	BackendGemini: "GEMINI_API_KEY",
}

// Config holds all configuration for Vettore.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Cache      CacheConfig      `yaml:"cache"`
	Limits     LimitsConfig     `yaml:"limits"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	CORSOrigin   string        `yaml:"cors_origin"`
}

// EmbeddingsConfig selects and configures the embedding backend.
type EmbeddingsConfig struct {
	Backend    string        `yaml:"backend"`
	Model      string        `yaml:"model"`
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Dimensions int           `yaml:"dimensions"` // 0 = discovered at load
	Timeout    time.Duration `yaml:"timeout"`
	Truncate   bool          `yaml:"truncate"`
}

// CacheConfig configures embedding caching. Both tiers are optional.
type CacheConfig struct {
	Size   int    `yaml:"size"`    // in-memory LRU entries, 0 disables
	DBPath string `yaml:"db_path"` // SQLite file, empty disables
}

// LimitsConfig bounds request inputs.
type LimitsConfig struct {
	MaxTextLength int `yaml:"max_text_length"` // characters, 0 = unlimited
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with sensible defaults. The model is left empty
// until ResolveProviderDefaults picks one for the final backend.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5001,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 10 << 20,
			CORSOrigin:   "*",
		},
		Embeddings: EmbeddingsConfig{
			Backend: BackendTEI,
			Timeout: 60 * time.Second,
		},
		Cache: CacheConfig{
			Size: 0,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load resolves configuration from defaults, the YAML file at path (if
// non-empty) and the environment. envFile names a .env file to load first;
// when empty, ./.env is used if present.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

func loadEnvFile(envFile string) error {
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load .env file: %w", err)
	}
	return nil
}

// applyEnv overrides fields from VETTORE_* variables.
func (c *Config) applyEnv() {
	c.Server.Host = getEnv("VETTORE_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("VETTORE_PORT", c.Server.Port)
	c.Server.MaxBodyBytes = int64(getEnvAsInt("VETTORE_MAX_BODY_BYTES", int(c.Server.MaxBodyBytes)))
	c.Server.CORSOrigin = getEnv("VETTORE_CORS_ORIGIN", c.Server.CORSOrigin)

	c.Embeddings.Backend = getEnv("VETTORE_BACKEND", c.Embeddings.Backend)
	c.Embeddings.Model = getEnv("VETTORE_MODEL", c.Embeddings.Model)
	c.Embeddings.URL = getEnv("VETTORE_BACKEND_URL", c.Embeddings.URL)
	c.Embeddings.Dimensions = getEnvAsInt("VETTORE_DIMENSIONS", c.Embeddings.Dimensions)
	c.Embeddings.Timeout = getEnvAsDuration("VETTORE_BACKEND_TIMEOUT", c.Embeddings.Timeout)
	c.Embeddings.APIKey = getEnv("VETTORE_API_KEY", c.Embeddings.APIKey)

	c.Cache.Size = getEnvAsInt("VETTORE_CACHE_SIZE", c.Cache.Size)
	c.Cache.DBPath = getEnv("VETTORE_CACHE_DB", c.Cache.DBPath)

	c.Limits.MaxTextLength = getEnvAsInt("VETTORE_MAX_TEXT_LENGTH", c.Limits.MaxTextLength)

	c.Log.Level = getEnv("VETTORE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("VETTORE_LOG_FORMAT", c.Log.Format)
}

// ResolveProviderDefaults fills in values that depend on the backend: the
// backend's default model when none was set, and the provider API key
// (OPENAI_API_KEY, GEMINI_API_KEY) when no explicit key was given. Call it
// after every layer, flags included, has been applied.
func (c *Config) ResolveProviderDefaults() {
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = defaultModels[c.Embeddings.Backend]
	}
	if c.Embeddings.APIKey == "" {
		if key, ok := providerKeyEnv[c.Embeddings.Backend]; ok {
			c.Embeddings.APIKey = os.Getenv(key)
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.Server.MaxBodyBytes < 0 {
		return errors.New("server.max_body_bytes must not be negative")
	}
	if c.Embeddings.Model == "" {
		return errors.New("embeddings.model is required")
	}
	if c.Embeddings.Dimensions < 0 {
		return errors.New("embeddings.dimensions must not be negative")
	}
	switch c.Embeddings.Backend {
	case BackendTEI, BackendOllama:
	case BackendOpenAI, BackendGemini:
		if c.Embeddings.APIKey == "" {
			return fmt.Errorf("embeddings.api_key is required for the %s backend", c.Embeddings.Backend)
		}
	default:
		return fmt.Errorf("embeddings.backend must be one of %s, %s, %s, %s",
			BackendTEI, BackendOllama, BackendOpenAI, BackendGemini)
	}
	if c.Cache.Size < 0 {
		return errors.New("cache.size must not be negative")
	}
	if c.Limits.MaxTextLength < 0 {
		return errors.New("limits.max_text_length must not be negative")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return errors.New("log.format must be 'json' or 'text'")
	}
	return nil
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
