// Package store defines the persistent embedding cache interface
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no embedding is stored for a key
var ErrNotFound = errors.New("embedding not found")

// EmbeddingStore persists embeddings keyed by model and content key.
// Keys are produced by cache.Key so raw text is never stored.
type EmbeddingStore interface {
	// Get retrieves an embedding, returning ErrNotFound on a miss
	Get(ctx context.Context, model, key string) ([]float32, error)

	// Put inserts or replaces an embedding
	Put(ctx context.Context, model, key string, embedding []float32) error

	// Count returns the number of embeddings, optionally filtered by model
	Count(ctx context.Context, model string) (int, error)

	// Stats returns storage statistics
	Stats(ctx context.Context) (*Stats, error)

	// Compact optimizes storage
	Compact(ctx context.Context) error

	// Close releases resources
	Close() error
}

// Stats describes the contents of an EmbeddingStore
type Stats struct {
	Entries      int   `json:"entries"`
	Models       int   `json:"models"`
	StorageBytes int64 `json:"storage_bytes"`
}
