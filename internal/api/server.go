// Package api provides the HTTP API server and handlers for Recshelf.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recshelf/recshelf-server/internal/http/response"
	"github.com/recshelf/recshelf-server/internal/ratelimit"
	"github.com/recshelf/recshelf-server/internal/service"
	"github.com/recshelf/recshelf-server/internal/store"
)

// Services groups the business logic used by the handlers.
type Services struct {
	Auth            *service.AuthService
	Recommendations *service.RecommendationService
}

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins    []string
	MetricsEnabled bool

	// AuthRequestsPerMinute and AuthBurst bound auth calls per client IP.
	AuthRequestsPerMinute int
	AuthBurst             int

	// Probes are reported by /health next to the account database.
	Probes []Probe
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db              store.Database
	services        *Services
	opts            Options
	router          *chi.Mux
	api             huma.API
	authRateLimiter *ratelimit.KeyedRateLimiter
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(db store.Database, services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.AuthRequestsPerMinute <= 0 {
		opts.AuthRequestsPerMinute = 20
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 10
	}

	s := &Server{
		db:              db,
		services:        services,
		opts:            opts,
		router:          chi.NewRouter(),
		authRateLimiter: ratelimit.PerInterval(opts.AuthRequestsPerMinute, time.Minute, opts.AuthBurst),
		logger:          logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Recshelf API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(response.Recoverer(s.logger))

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", visitorHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: len(s.opts.CORSOrigins) > 0,
		MaxAge:           300,
	}))

	s.router.Use(clientInfoMiddleware)
	s.router.Use(bearerMiddleware)
	s.router.Use(visitorMiddleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerRecommendationRoutes()
	s.registerLibraryRoutes()

	if s.opts.MetricsEnabled {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	s.router.NotFound(response.NotFound(s.logger))
	s.router.MethodNotAllowed(response.MethodNotAllowed(s.logger))
}
