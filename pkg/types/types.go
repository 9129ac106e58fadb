// Package types defines the wire payloads of the Vettore HTTP API
package types

// EmbedRequest is the request payload for POST /embed
type EmbedRequest struct {
	Text string `json:"text"`
}

// EmbedResponse is the response payload for POST /embed
type EmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// SimilarityRequest is the request payload for POST /similarity
type SimilarityRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// SimilarityResponse holds one cosine score per candidate text, in request order
type SimilarityResponse struct {
	Similarities []float32 `json:"similarities"`
}

// HealthResponse reports readiness and the loaded model
type HealthResponse struct {
	Status     string `json:"status"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// StatsResponse contains runtime statistics for the embedding backend
type StatsResponse struct {
	Model         string  `json:"model"`
	Dimensions    int     `json:"dimensions"`
	Requests      int64   `json:"requests"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	CacheEntries  int     `json:"cache_entries"`
	StoredEntries int     `json:"stored_entries"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusOK is the health status reported once the model is loaded
const StatusOK = "ok"
