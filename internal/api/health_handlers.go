package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Version    string                     `json:"version" doc:"Server version"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := make(map[string]ComponentHealth)
	overall := "healthy"

	db := s.checkDatabase(ctx)
	components["database"] = db
	if db.Status != "healthy" {
		overall = "unhealthy"
	}

	c := s.checkCache()
	components["cache"] = c
	if c.Status != "healthy" && overall == "healthy" {
		overall = "degraded"
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Version:    s.opts.Version,
			Components: components,
		},
	}, nil
}

// checkDatabase pings the store.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.infra.Store == nil {
		return ComponentHealth{Status: "unhealthy", Message: "store not configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := s.infra.Store.Ping(ctx); err != nil {
		s.logger.Warn("health check: database ping failed", "error", err)
		return ComponentHealth{Status: "unhealthy", Message: "database unreachable"}
	}
	return ComponentHealth{Status: "healthy", Latency: time.Since(start).String()}
}

// checkCache reports cache counters. A missing cache only degrades
// performance, never correctness.
func (s *Server) checkCache() ComponentHealth {
	if s.infra.Cache == nil {
		return ComponentHealth{Status: "degraded", Message: "cache disabled"}
	}
	st := s.infra.Cache.Stats()
	return ComponentHealth{
		Status:  "healthy",
		Message: fmt.Sprintf("memory hits %d, disk hits %d, misses %d", st.MemoryHits, st.DiskHits, st.Misses),
	}
}
