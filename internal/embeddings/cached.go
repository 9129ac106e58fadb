package embeddings

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/shivavenkatesh/vettore/internal/cache"
	"github.com/shivavenkatesh/vettore/internal/store"
)

// CachedEmbedder wraps an Embedder with an in-memory LRU tier and an
// optional persistent tier. Lookups go memory, then store, then backend.
type CachedEmbedder struct {
	inner  Embedder
	memory *cache.EmbeddingCache // nil disables
	store  store.EmbeddingStore  // nil disables
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedEmbedder creates a cached wrapper around an embedder. Either
// tier may be nil.
func NewCachedEmbedder(inner Embedder, memory *cache.EmbeddingCache, st store.EmbeddingStore, logger *slog.Logger) *CachedEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedder{
		inner:  inner,
		memory: memory,
		store:  st,
		logger: logger,
	}
}

// Unwrap returns the wrapped backend
func (c *CachedEmbedder) Unwrap() Embedder {
	return c.inner
}

// Embed generates or retrieves a cached embedding for text
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if emb, ok := c.lookup(ctx, text); ok {
		c.hits.Add(1)
		return emb, nil
	}
	c.misses.Add(1)

	emb, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.save(ctx, text, emb)
	return emb, nil
}

// EmbedBatch generates embeddings, sending only uncached texts to the backend.
// Repeated texts within one batch are embedded once.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float32, len(texts))
	var uncachedTexts []string
	pending := make(map[string][]int)

	for i, text := range texts {
		if idx, ok := pending[text]; ok {
			pending[text] = append(idx, i)
			continue
		}
		if emb, ok := c.lookup(ctx, text); ok {
			c.hits.Add(1)
			results[i] = emb
			continue
		}
		c.misses.Add(1)
		uncachedTexts = append(uncachedTexts, text)
		pending[text] = []int{i}
	}

	if len(uncachedTexts) == 0 {
		return results, nil
	}

	embeddings, err := c.inner.EmbedBatch(ctx, uncachedTexts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(uncachedTexts) {
		return nil, ErrCountMismatch
	}

	for j, emb := range embeddings {
		text := uncachedTexts[j]
		for n, idx := range pending[text] {
			if n == 0 {
				results[idx] = emb
			} else {
				results[idx] = cloneVector(emb)
			}
		}
		c.save(ctx, text, emb)
	}

	return results, nil
}

// lookup checks the memory tier, then the store. Store hits are promoted
// into memory. Vectors whose length disagrees with the backend are ignored.
func (c *CachedEmbedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	model := c.inner.Model()

	if c.memory != nil {
		if emb, ok := c.memory.Get(model, text); ok && c.fits(emb) {
			return emb, true
		}
	}

	if c.store == nil {
		return nil, false
	}

	emb, err := c.store.Get(ctx, model, cache.Key(model, text))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("embedding store read failed", "error", err)
		}
		return nil, false
	}
	if !c.fits(emb) {
		return nil, false
	}

	if c.memory != nil {
		c.memory.Put(model, text, emb)
	}
	return emb, true
}

func (c *CachedEmbedder) save(ctx context.Context, text string, emb []float32) {
	model := c.inner.Model()

	if c.memory != nil {
		c.memory.Put(model, text, emb)
	}
	if c.store != nil {
		if err := c.store.Put(ctx, model, cache.Key(model, text), emb); err != nil {
			c.logger.Warn("embedding store write failed", "error", err)
		}
	}
}

func (c *CachedEmbedder) fits(emb []float32) bool {
	dims := c.inner.Dimensions()
	return len(emb) > 0 && (dims == 0 || len(emb) == dims)
}

// Dimensions returns the embedding vector dimensions
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Model returns the model identifier
func (c *CachedEmbedder) Model() string {
	return c.inner.Model()
}

// Stats merges backend statistics with cache effectiveness
func (c *CachedEmbedder) Stats() Stats {
	var s Stats
	if r, ok := c.inner.(StatsReporter); ok {
		s = r.Stats()
	}
	s.CacheHits = c.hits.Load()
	s.CacheMisses = c.misses.Load()
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(total) * 100
	}
	if c.memory != nil {
		s.CacheEntries = c.memory.Stats().Entries
	}
	if c.store != nil {
		n, err := c.store.Count(context.Background(), c.inner.Model())
		if err != nil {
			c.logger.Warn("embedding store count failed", "error", err)
		}
		s.StoredEntries = n
	}
	return s
}

// Close closes the backend and the store
func (c *CachedEmbedder) Close() error {
	err := c.inner.Close()
	if c.store != nil {
		err = errors.Join(err, c.store.Close())
	}
	return err
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

var _ Embedder = (*CachedEmbedder)(nil)
