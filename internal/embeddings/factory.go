package embeddings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shivavenkatesh/vettore/internal/cache"
	"github.com/shivavenkatesh/vettore/internal/config"
	"github.com/shivavenkatesh/vettore/internal/store"
	"github.com/shivavenkatesh/vettore/internal/store/sqlite"
)

// NewBackend creates the embedder selected by cfg.Backend
func NewBackend(ctx context.Context, cfg config.EmbeddingsConfig) (Embedder, error) {
	switch cfg.Backend {
	case config.BackendTEI, "":
		return NewTEIClient(TEIConfig{
			BaseURL:    cfg.URL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Truncate:   cfg.Truncate,
			Timeout:    cfg.Timeout,
		}), nil
	case config.BackendOllama:
		return NewOllamaClient(OllamaConfig{
			BaseURL:    cfg.URL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Truncate:   cfg.Truncate,
			Timeout:    cfg.Timeout,
		}), nil
	case config.BackendOpenAI:
		c, err := NewOpenAIClient(OpenAIConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.URL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendGemini:
		c, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.URL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown embeddings backend %q", cfg.Backend)
	}
}

// New creates the configured backend and wraps it with whichever cache
// tiers are enabled
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Embedder, error) {
	backend, err := NewBackend(ctx, cfg.Embeddings)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Size == 0 && cfg.Cache.DBPath == "" {
		return backend, nil
	}

	var memory *cache.EmbeddingCache
	if cfg.Cache.Size > 0 {
		memory = cache.NewEmbeddingCache(cfg.Cache.Size)
	}

	var st store.EmbeddingStore
	if cfg.Cache.DBPath != "" {
		s, err := sqlite.New(sqlite.Config{Path: cfg.Cache.DBPath})
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("failed to open embedding store: %w", err)
		}
		st = s
	}

	return NewCachedEmbedder(backend, memory, st, logger), nil
}
