package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaClient generates embeddings through a local Ollama server
type OllamaClient struct {
	baseURL    string
	model      string
	truncate   bool
	httpClient *http.Client
	dims       dimensions
	meter
}

// ollamaRequest is the request payload for the Ollama /api/embed endpoint
type ollamaRequest struct {
	Model    string   `json:"model"`
	Input    []string `json:"input"`
	Truncate bool     `json:"truncate"`
}

// ollamaErrorResponse is the error body returned by Ollama
type ollamaErrorResponse struct {
	Error string `json:"error"`
}

// OllamaConfig configures the Ollama client
type OllamaConfig struct {
	BaseURL    string
	Model      string
	Dimensions int // expected dimensions, 0 to discover at load
	Truncate   bool
	Timeout    time.Duration
}

// DefaultOllamaConfig returns sensible defaults
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		BaseURL: "http://localhost:11434",
		Model:   "nomic-embed-text",
		Timeout: 60 * time.Second,
	}
}

// NewOllamaClient creates a new Ollama embeddings client
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	defaults := DefaultOllamaConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	c := &OllamaClient{
		baseURL:  cfg.BaseURL,
		model:    cfg.Model,
		truncate: cfg.Truncate,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
	c.dims.set(cfg.Dimensions)
	return c
}

// Embed generates an embedding for the given text
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch sends all texts in a single /api/embed call
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()

	jsonBody, err := json.Marshal(ollamaRequest{
		Model:    c.model,
		Input:    texts,
		Truncate: c.truncate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed (is Ollama running at %s?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp ollamaErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("ollama error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	embeddings, err := c.parseEmbeddingStream(resp.Body, len(texts))
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if err := c.dims.check(texts, embeddings); err != nil {
		return nil, err
	}

	c.observe(start)
	return embeddings, nil
}

// parseEmbeddingStream walks the response tokens to the "embeddings" array
// and decodes its rows without materializing the rest of the document
func (c *OllamaClient) parseEmbeddingStream(r io.Reader, expected int) ([][]float32, error) {
	dec := json.NewDecoder(r)

	for {
		t, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		key, ok := t.(string)
		if !ok || key != "embeddings" {
			continue
		}

		// Opening bracket of the outer array
		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		embeddings := make([][]float32, 0, expected)
		for dec.More() {
			row := make([]float32, 0, c.dims.get())
			if err := dec.Decode(&row); err != nil {
				return nil, err
			}
			embeddings = append(embeddings, row)
		}
		return embeddings, nil
	}

	return nil, fmt.Errorf("no embeddings found in response")
}

// Dimensions returns the embedding vector dimensions
func (c *OllamaClient) Dimensions() int {
	return c.dims.get()
}

// Model returns the current embedding model name
func (c *OllamaClient) Model() string {
	return c.model
}

// Stats returns client statistics
func (c *OllamaClient) Stats() Stats {
	return c.meter.stats()
}

// Close releases resources
func (c *OllamaClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ Embedder = (*OllamaClient)(nil)
