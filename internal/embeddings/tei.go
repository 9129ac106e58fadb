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

// TEIClient talks to a HuggingFace text-embeddings-inference server.
// Vectors are requested L2-normalized, matching the Normalize stage that
// ends the LaBSE sentence-transformers pipeline.
type TEIClient struct {
	baseURL    string
	model      string
	truncate   bool
	httpClient *http.Client
	dims       dimensions
	meter
}

// teiRequest is the request payload for the TEI /embed endpoint
type teiRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
	Truncate  bool     `json:"truncate"`
}

// teiErrorResponse is the error body returned by TEI
type teiErrorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// TEIConfig configures the TEI client
type TEIConfig struct {
	BaseURL    string
	Model      string // identifier reported by Model(); TEI serves one model per process
	Dimensions int
	Truncate   bool
	Timeout    time.Duration
}

// DefaultTEIConfig returns sensible defaults
func DefaultTEIConfig() TEIConfig {
	return TEIConfig{
		BaseURL: "http://localhost:8080",
		Model:   "sentence-transformers/LaBSE",
		Timeout: 60 * time.Second,
	}
}

// NewTEIClient creates a new TEI embeddings client
func NewTEIClient(cfg TEIConfig) *TEIClient {
	defaults := DefaultTEIConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaults.Timeout
	}

	c := &TEIClient{
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
func (c *TEIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch sends all texts in a single /embed call
func (c *TEIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()

	jsonBody, err := json.Marshal(teiRequest{
		Inputs:    texts,
		Normalize: true,
		Truncate:  c.truncate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tei request failed (is text-embeddings-inference running at %s?): %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp teiErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("tei error (%s): %s", errResp.ErrorType, errResp.Error)
		}
		return nil, fmt.Errorf("tei returned status %d: %s", resp.StatusCode, string(body))
	}

	var embeddings [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&embeddings); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if err := c.dims.check(texts, embeddings); err != nil {
		return nil, err
	}

	c.observe(start)
	return embeddings, nil
}

// Dimensions returns the embedding vector dimensions
func (c *TEIClient) Dimensions() int {
	return c.dims.get()
}

// Model returns the model identifier
func (c *TEIClient) Model() string {
	return c.model
}

// Stats returns client statistics
func (c *TEIClient) Stats() Stats {
	return c.meter.stats()
}

// Close releases resources
func (c *TEIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

var _ Embedder = (*TEIClient)(nil)
