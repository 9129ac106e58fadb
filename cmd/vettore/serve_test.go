package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shivavenkatesh/vettore/internal/config"
)

// setServeFlag sets a serve flag for the duration of the test
func setServeFlag(t *testing.T, name, value string) {
	t.Helper()
	require.NoError(t, serveCmd.Flags().Set(name, value))
	t.Cleanup(func() {
		f := serveCmd.Flags().Lookup(name)
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func TestApplyServeFlags_OnlyChanged(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 7000
	cfg.Embeddings.Backend = config.BackendOllama

	setServeFlag(t, "host", "127.0.0.1")
	setServeFlag(t, "cache-size", "250")

	applyServeFlags(serveCmd, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 250, cfg.Cache.Size)
	assert.Equal(t, 7000, cfg.Server.Port, "unset flags must not override config")
	assert.Equal(t, config.BackendOllama, cfg.Embeddings.Backend)
}

func TestServerConfig(t *testing.T) {
	cfg := config.Default()
	sc := serverConfig(cfg)

	assert.Equal(t, "0.0.0.0", sc.Host)
	assert.Equal(t, 5001, sc.Port)
	assert.Equal(t, cfg.Server.MaxBodyBytes, sc.MaxBodyBytes)
	assert.Equal(t, "*", sc.CORSOrigin)
}

func TestServeConfig_ProviderDefaultsFollowBackendFlag(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GEMINI_API_KEY", "gm-test")

	tests := []struct {
		name      string
		flags     map[string]string
		wantModel string
		wantKey   string
	}{
		{"default", nil, config.DefaultModel, ""},
		{"openai", map[string]string{"backend": "openai"}, "text-embedding-3-small", "sk-test"},
		{"gemini", map[string]string{"backend": "gemini"}, "text-embedding-004", "gm-test"},
		{"ollama", map[string]string{"backend": "ollama"}, "nomic-embed-text", ""},
		{"explicit model", map[string]string{"backend": "openai", "model": "text-embedding-3-large"}, "text-embedding-3-large", "sk-test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, value := range tt.flags {
				setServeFlag(t, name, value)
			}

			cfg, err := serveConfig(serveCmd)
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, cfg.Embeddings.Model)
			assert.Equal(t, tt.wantKey, cfg.Embeddings.APIKey)
		})
	}
}

func TestServeConfig_MissingProviderKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	setServeFlag(t, "backend", "openai")

	_, err := serveConfig(serveCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embeddings.api_key is required for the openai backend")
}
