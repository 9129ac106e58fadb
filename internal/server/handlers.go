package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shivavenkatesh/vettore/internal/service"
	"github.com/shivavenkatesh/vettore/pkg/types"
)

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.Health(), http.StatusOK)
}

// handleEmbed handles POST /embed
func (s *Server) handleEmbed(w http.ResponseWriter, r *http.Request) {
	req, err := service.ReadEmbedRequest(s.limitBody(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := s.svc.Embed(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, resp, http.StatusOK)
}

// handleSimilarity handles POST /similarity
func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	req, err := service.ReadSimilarityRequest(s.limitBody(w, r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp, err := s.svc.Similarity(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, resp, http.StatusOK)
}

// handleStats handles GET /stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.Stats(), http.StatusOK)
}

// limitBody caps the request body at MaxBodyBytes
func (s *Server) limitBody(w http.ResponseWriter, r *http.Request) io.Reader {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	if s.config.MaxBodyBytes > 0 {
		return http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}
	return r.Body
}

// fail maps invalid requests to 400 and everything else to a logged 500
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if msg, ok := service.IsInvalidRequest(err); ok {
		writeError(w, msg, http.StatusBadRequest)
		return
	}

	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r.Context()),
		"error", err,
	)
	writeError(w, err.Error(), http.StatusInternalServerError)
}

func methodNotAllowed(allow string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, types.ErrorResponse{Error: message}, status)
}
