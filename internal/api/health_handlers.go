package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/sync/errgroup"
)

const probeTimeout = 2 * time.Second

// Component states reported by /health.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// Probe checks one dependency. A failing critical probe makes the server
// unhealthy; any other failure only degrades it.
type Probe struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health with one entry per probed dependency",
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
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

// probes returns the account database probe followed by the configured ones.
func (s *Server) probes() []Probe {
	probes := make([]Probe, 0, len(s.opts.Probes)+1)
	if s.db != nil {
		probes = append(probes, Probe{Name: "database", Critical: true, Check: s.db.Ping})
	}
	return append(probes, s.opts.Probes...)
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	probes := s.probes()
	results := make([]ComponentHealth, len(probes))

	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			results[i] = s.runProbe(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	overall := statusHealthy
	components := make(map[string]ComponentHealth, len(probes))
	for i, p := range probes {
		components[p.Name] = results[i]
		switch {
		case results[i].Status == statusHealthy:
		case p.Critical:
			overall = statusUnhealthy
		case overall == statusHealthy:
			overall = statusDegraded
		}
	}
	if s.db == nil {
		components["database"] = ComponentHealth{Status: statusDegraded, Message: "database not configured"}
		if overall == statusHealthy {
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

func (s *Server) runProbe(ctx context.Context, p Probe) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()
	err := p.Check(ctx)
	latency := time.Since(start).String()

	if err == nil {
		return ComponentHealth{Status: statusHealthy, Latency: latency}
	}

	s.logger.Warn("health probe failed", "component", p.Name, "error", err)
	status := statusDegraded
	if p.Critical {
		status = statusUnhealthy
	}
	return ComponentHealth{Status: status, Latency: latency, Message: p.Name + " unreachable"}
}
