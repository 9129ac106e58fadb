package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// geminiMaxBatch is the largest number of contents per EmbedContent call
const geminiMaxBatch = 100

// GeminiClient generates embeddings through the Gemini API
type GeminiClient struct {
	client     *genai.Client
	model      string
	outputDims int
	dims       dimensions
	meter
}

// GeminiConfig configures the Gemini client
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// DefaultGeminiConfig returns sensible defaults
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Model:   "text-embedding-004",
		Timeout: 60 * time.Second,
	}
}

// NewGeminiClient creates a new Gemini embeddings client
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	defaults := DefaultGeminiConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	timeout := cfg.Timeout
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
			Timeout: &timeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	c := &GeminiClient{
		client:     client,
		model:      cfg.Model,
		outputDims: cfg.Dimensions,
	}
	c.dims.set(cfg.Dimensions)
	return c, nil
}

// Embed generates an embedding for the given text
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings, splitting the input into API-sized requests
func (c *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()

	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += geminiMaxBatch {
		end := min(i+geminiMaxBatch, len(texts))
		batch, err := c.embedChunk(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	if err := c.dims.check(texts, embeddings); err != nil {
		return nil, err
	}

	c.observe(start)
	return embeddings, nil
}

func (c *GeminiClient) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = &genai.Content{
			Parts: []*genai.Part{
				{Text: text},
			},
		}
	}

	cfg := &genai.EmbedContentConfig{}
	if c.outputDims > 0 {
		n := int32(c.outputDims)
		cfg.OutputDimensionality = &n
	}

	result, err := c.client.Models.EmbedContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrCountMismatch, len(texts), len(result.Embeddings))
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, e := range result.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("missing embedding %d", i)
		}
		embeddings[i] = e.Values
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector dimensions
func (c *GeminiClient) Dimensions() int {
	return c.dims.get()
}

// Model returns the model identifier
func (c *GeminiClient) Model() string {
	return c.model
}

// Stats returns client statistics
func (c *GeminiClient) Stats() Stats {
	return c.meter.stats()
}

// Close releases resources
func (c *GeminiClient) Close() error {
	return nil
}

var _ Embedder = (*GeminiClient)(nil)
