package server

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentStatus represents the health of an individual component
type ComponentStatus string

const (
	ComponentStatusUp   ComponentStatus = "up"
	ComponentStatusDown ComponentStatus = "down"
)

// Health represents the complete health check response
type Health struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents the health of a single system component
type ComponentHealth struct {
	Status    ComponentStatus `json:"status"`
	Message   string          `json:"message,omitempty"`
	LatencyMs float64         `json:"latency_ms,omitempty"`
}

// handleHealth reports per-component status for the record store and the
// blob area.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]ComponentHealth{
		"database":       s.checkDatabase(ctx),
		"object_storage": s.checkObjectStorage(ctx),
	}

	status := HealthStatusHealthy
	statusCode := http.StatusOK
	for _, c := range components {
		if c.Status == ComponentStatusDown {
			status = HealthStatusUnhealthy
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, statusCode, Health{
		Status:     status,
		Timestamp:  time.Now().UTC(),
		Components: components,
	})
}

func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: "query failed"}
	}
	return ComponentHealth{
		Status:    ComponentStatusUp,
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

func (s *Server) checkObjectStorage(ctx context.Context) ComponentHealth {
	start := time.Now()
	exists, err := s.blobs.BucketExists(ctx, s.bucket)
	if err != nil {
		return ComponentHealth{Status: ComponentStatusDown, Message: "bucket check failed"}
	}
	if !exists {
		return ComponentHealth{Status: ComponentStatusDown, Message: "bucket missing"}
	}
	return ComponentHealth{
		Status:    ComponentStatusUp,
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
}

// handleReady is a fast readiness probe for load balancers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
