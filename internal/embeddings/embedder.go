// Package embeddings provides vector embedding generation
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Embedder generates vector embeddings from text.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates one embedding per text, in input order
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector dimensions, 0 before Load
	Dimensions() int

	// Model returns the model identifier
	Model() string

	// Close releases any resources
	Close() error
}

// Stats reports backend activity
type Stats struct {
	Requests      int64
	AvgLatencyMs  float64
	CacheHits     int64
	CacheMisses   int64
	CacheHitRate  float64 // percent
	CacheEntries  int     // in-memory entries
	StoredEntries int     // persisted entries for this model
}

// StatsReporter is implemented by embedders that track usage
type StatsReporter interface {
	Stats() Stats
}

var (
	// ErrDimensionMismatch is returned when a backend produces a vector
	// whose length differs from the model's established dimensionality
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCountMismatch is returned when a backend returns a different
	// number of vectors than texts it was given
	ErrCountMismatch = errors.New("embedding count mismatch")
)

// warmupText is encoded once at startup to verify the model and fix its dimensionality
const warmupText = "vettore"

// Unwrapper is implemented by embedders that decorate another embedder
type Unwrapper interface {
	Unwrap() Embedder
}

// Backend returns the innermost embedder behind any decorators
func Backend(e Embedder) Embedder {
	for {
		u, ok := e.(Unwrapper)
		if !ok {
			return e
		}
		e = u.Unwrap()
	}
}

// Load verifies that the model answers and fixes its dimensionality.
// The warmup text always reaches the backend, never a cache tier.
// It is called once before the server accepts traffic; an error is fatal.
func Load(ctx context.Context, e Embedder) error {
	embedding, err := Backend(e).Embed(ctx, warmupText)
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", e.Model(), err)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("failed to load model %s: empty embedding", e.Model())
	}
	return nil
}

// meter tracks request counts and cumulative latency
type meter struct {
	requests atomic.Int64
	latency  atomic.Int64 // cumulative latency in microseconds
}

func (m *meter) observe(start time.Time) {
	m.requests.Add(1)
	m.latency.Add(time.Since(start).Microseconds())
}

func (m *meter) stats() Stats {
	s := Stats{Requests: m.requests.Load()}
	if s.Requests > 0 {
		s.AvgLatencyMs = float64(m.latency.Load()) / float64(s.Requests) / 1000
	}
	return s
}

// dimensions remembers the vector length of the loaded model. The first
// observed length wins unless one was configured up front.
type dimensions struct {
	n atomic.Int64
}

func (d *dimensions) get() int {
	return int(d.n.Load())
}

func (d *dimensions) set(n int) {
	d.n.Store(int64(n))
}

// check verifies that texts and vectors line up and that every vector has
// the model's dimensionality
func (d *dimensions) check(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%w: expected %d embeddings, got %d", ErrCountMismatch, len(texts), len(vectors))
	}
	if len(vectors) == 0 {
		return nil
	}

	d.n.CompareAndSwap(0, int64(len(vectors[0])))
	want := d.get()
	for i, v := range vectors {
		if len(v) != want {
			return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), want)
		}
	}
	return nil
}
