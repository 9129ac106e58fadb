package embeddings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// geminiBatchRequest mirrors the batchEmbedContents request body
type geminiBatchRequest struct {
	Requests []struct {
		Model   string `json:"model"`
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		OutputDimensionality *int `json:"outputDimensionality"`
	} `json:"requests"`
}

func newGeminiTestClient(t *testing.T, handler http.HandlerFunc, dims int) *GeminiClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:     "gm-test",
		BaseURL:    srv.URL,
		Dimensions: dims,
	})
	require.NoError(t, err)
	return client
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}

func TestGeminiClient_EmbedBatchChunks(t *testing.T) {
	var (
		mu    sync.Mutex
		sizes []int
	)
	client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/text-embedding-004:batchEmbedContents"), "unexpected path %s", r.URL.Path)
		assert.Equal(t, "gm-test", r.Header.Get("x-goog-api-key"))

		var req geminiBatchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		sizes = append(sizes, len(req.Requests))
		mu.Unlock()

		type embedding struct {
			Values []float32 `json:"values"`
		}
		out := struct {
			Embeddings []embedding `json:"embeddings"`
		}{}
		for _, item := range req.Requests {
			assert.Contains(t, item.Model, "text-embedding-004")
			if assert.NotNil(t, item.OutputDimensionality) {
				assert.Equal(t, 2, *item.OutputDimensionality)
			}
			if !assert.Len(t, item.Content.Parts, 1) {
				continue
			}
			var n float32
			fmt.Sscanf(item.Content.Parts[0].Text, "text-%f", &n)
			out.Embeddings = append(out.Embeddings, embedding{Values: []float32{n, 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}, 2)

	texts := make([]string, geminiMaxBatch+50)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	embs, err := client.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Equal(t, []int{geminiMaxBatch, 50}, sizes)
	require.Len(t, embs, len(texts))
	for i, emb := range embs {
		assert.Equal(t, []float32{float32(i), 1}, emb, "embedding %d out of order", i)
	}
	assert.Equal(t, 2, client.Dimensions())
	assert.Equal(t, "text-embedding-004", client.Model())
	assert.Equal(t, int64(1), client.Stats().Requests)
}

func TestGeminiClient_OmitsOutputDimensionality(t *testing.T) {
	client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiBatchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		for _, item := range req.Requests {
			assert.Nil(t, item.OutputDimensionality)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embeddings":[{"values":[0.5,0.25,0.125]}]}`))
	}, 0)

	emb, err := client.Embed(context.Background(), "ciao")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, emb)
	assert.Equal(t, 3, client.Dimensions())
}

func TestGeminiClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "count mismatch",
			status:  http.StatusOK,
			body:    `{"embeddings":[{"values":[1,0]}]}`,
			wantErr: ErrCountMismatch.Error(),
		},
		{
			name:    "missing embedding",
			status:  http.StatusOK,
			body:    `{"embeddings":[{"values":[1,0]},null]}`,
			wantErr: "missing embedding 1",
		},
		{
			name:    "api error",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":400,"message":"model not found","status":"INVALID_ARGUMENT"}}`,
			wantErr: "failed to generate embeddings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newGeminiTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}, 0)

			_, err := client.EmbedBatch(context.Background(), []string{"a", "b"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGeminiClient_EmptyBatch(t *testing.T) {
	client, err := NewGeminiClient(context.Background(), GeminiConfig{APIKey: "gm-test", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	embs, err := client.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embs)
}
