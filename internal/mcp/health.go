package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Qdrant    string `json:"qdrant"`
	Registry  string `json:"registry"`
	Extractor string `json:"extractor,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker is implemented by the vector store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Pinger is implemented by the document registry.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ExtractorStatus is implemented by the high-fidelity extraction service client.
type ExtractorStatus interface {
	Healthy(ctx context.Context) bool
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// It checks Qdrant and the registry database and answers 503 if either fails.
// extractor may be nil. An unreachable extractor only degrades the status,
// since uploads fall back to fast extraction without it.
func NewHealthHandler(store HealthChecker, registry Pinger, extractor ExtractorStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Qdrant:    "connected",
			Registry:  "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK

		if err := store.Health(ctx); err != nil {
			response.Qdrant = "disconnected"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		if err := registry.Ping(ctx); err != nil {
			response.Registry = "disconnected"
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		if extractor != nil {
			response.Extractor = "connected"
			if !extractor.Healthy(ctx) {
				response.Extractor = "disconnected"
				if status == http.StatusOK {
					response.Status = "degraded"
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}
}
