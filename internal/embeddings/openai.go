package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openAIMaxBatch is the largest input array the embeddings endpoint accepts
const openAIMaxBatch = 2048

// OpenAIClient generates embeddings through an OpenAI-compatible API
type OpenAIClient struct {
	client openai.Client
	model  string
	// requested output dimensions, 0 to use the model default
	outputDims int
	dims       dimensions
	meter
}

// OpenAIConfig configures the OpenAI client
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty for api.openai.com
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// DefaultOpenAIConfig returns sensible defaults
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:   "text-embedding-3-small",
		Timeout: 60 * time.Second,
	}
}

// NewOpenAIClient creates a new OpenAI embeddings client
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	defaults := DefaultOpenAIConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	c := &OpenAIClient{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		outputDims: cfg.Dimensions,
	}
	c.dims.set(cfg.Dimensions)
	return c, nil
}

// Embed generates an embedding for the given text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings, splitting the input into API-sized requests
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()

	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += openAIMaxBatch {
		end := min(i+openAIMaxBatch, len(texts))
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

func (c *OpenAIClient) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	}
	if c.outputDims > 0 {
		params.Dimensions = openai.Int(int64(c.outputDims))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrCountMismatch, len(texts), len(resp.Data))
	}

	// Results carry their input index and are not guaranteed to be ordered
	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(texts) || embeddings[idx] != nil {
			return nil, fmt.Errorf("unexpected embedding index %d", data.Index)
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		embeddings[idx] = vector
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector dimensions
func (c *OpenAIClient) Dimensions() int {
	return c.dims.get()
}

// Model returns the model identifier
func (c *OpenAIClient) Model() string {
	return c.model
}

// Stats returns client statistics
func (c *OpenAIClient) Stats() Stats {
	return c.meter.stats()
}

// Close releases resources
func (c *OpenAIClient) Close() error {
	return nil
}

var _ Embedder = (*OpenAIClient)(nil)
