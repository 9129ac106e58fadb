// Package service implements the embedding and similarity operations behind
// the HTTP API
package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/shivavenkatesh/vettore/internal/embeddings"
	"github.com/shivavenkatesh/vettore/internal/similarity"
	"github.com/shivavenkatesh/vettore/pkg/types"
)

// Service orchestrates embedding operations
type Service interface {
	// Embed encodes a single text
	Embed(ctx context.Context, req types.EmbedRequest) (*types.EmbedResponse, error)

	// Similarity scores each candidate text against the query by cosine similarity
	Similarity(ctx context.Context, req types.SimilarityRequest) (*types.SimilarityResponse, error)

	// Health reports readiness and the loaded model
	Health() *types.HealthResponse

	// Stats returns backend and cache statistics
	Stats() *types.StatsResponse

	// Close releases the embedder
	Close() error
}

// Config configures the service
type Config struct {
	MaxTextLength int // characters per text, 0 = unlimited
}

// serviceImpl implements the Service interface
type serviceImpl struct {
	embedder embeddings.Embedder
	config   Config
	started  time.Time
}

// New creates a service around an already loaded embedder
func New(emb embeddings.Embedder, cfg Config) Service {
	if cfg.MaxTextLength < 0 {
		cfg.MaxTextLength = 0
	}
	return &serviceImpl{
		embedder: emb,
		config:   cfg,
		started:  time.Now(),
	}
}

// Embed encodes a single text
func (s *serviceImpl) Embed(ctx context.Context, req types.EmbedRequest) (*types.EmbedResponse, error) {
	if err := s.checkLength("text", req.Text); err != nil {
		return nil, err
	}

	embedding, err := s.embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}
	if err := similarity.CheckFinite(embedding); err != nil {
		return nil, fmt.Errorf("invalid embedding: %w", err)
	}

	return &types.EmbedResponse{Embedding: embedding}, nil
}

// Similarity scores each candidate text against the query by cosine similarity
func (s *serviceImpl) Similarity(ctx context.Context, req types.SimilarityRequest) (*types.SimilarityResponse, error) {
	if len(req.Texts) == 0 {
		return nil, invalid(MsgTextsNotList)
	}
	if err := s.checkLength("query", req.Query); err != nil {
		return nil, err
	}
	for _, text := range req.Texts {
		if err := s.checkLength("text", text); err != nil {
			return nil, err
		}
	}

	query, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	candidates, err := s.embedder.EmbedBatch(ctx, req.Texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed texts: %w", err)
	}
	if len(candidates) != len(req.Texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d",
			embeddings.ErrCountMismatch, len(req.Texts), len(candidates))
	}

	if err := similarity.CheckFinite(query); err != nil {
		return nil, fmt.Errorf("invalid query embedding: %w", err)
	}
	for i, c := range candidates {
		if err := similarity.CheckFinite(c); err != nil {
			return nil, fmt.Errorf("invalid embedding for text %d: %w", i, err)
		}
	}

	scores, err := similarity.Batch(query, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to score texts: %w", err)
	}

	return &types.SimilarityResponse{Similarities: scores}, nil
}

// Health reports readiness and the loaded model
func (s *serviceImpl) Health() *types.HealthResponse {
	return &types.HealthResponse{
		Status:     types.StatusOK,
		Model:      s.embedder.Model(),
		Dimensions: s.embedder.Dimensions(),
	}
}

// Stats returns backend and cache statistics
func (s *serviceImpl) Stats() *types.StatsResponse {
	resp := &types.StatsResponse{
		Model:         s.embedder.Model(),
		Dimensions:    s.embedder.Dimensions(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	if r, ok := s.embedder.(embeddings.StatsReporter); ok {
		st := r.Stats()
		resp.Requests = st.Requests
		resp.AvgLatencyMs = st.AvgLatencyMs
		resp.CacheHits = st.CacheHits
		resp.CacheMisses = st.CacheMisses
		resp.CacheHitRate = st.CacheHitRate
		resp.CacheEntries = st.CacheEntries
		resp.StoredEntries = st.StoredEntries
	}

	return resp
}

// Close releases the embedder
func (s *serviceImpl) Close() error {
	return s.embedder.Close()
}

func (s *serviceImpl) checkLength(field, text string) error {
	if s.config.MaxTextLength > 0 && utf8.RuneCountInString(text) > s.config.MaxTextLength {
		return tooLong(field, s.config.MaxTextLength)
	}
	return nil
}
