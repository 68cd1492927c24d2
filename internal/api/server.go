// Package api provides the HTTP API server and handlers for Tug.
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

	"github.com/tugapp/tug/internal/ratelimit"
)

// Options tunes the HTTP surface.
type Options struct {
	Version     string
	CORSOrigins []string
	// PublicURL is where the server is reachable; shown on the Strava
	// landing page.
	PublicURL string
	// AuthPerMinute and AuthBurst limit login, registration and account
	// deletion per client IP. Defaults 20 and 10.
	AuthPerMinute int
	AuthBurst     int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	infra           Infrastructure
	services        *Services
	opts            Options
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(infra Infrastructure, services *Services, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.AuthPerMinute <= 0 {
		opts.AuthPerMinute = 20
	}
	if opts.AuthBurst <= 0 {
		opts.AuthBurst = 10
	}

	s := &Server{
		infra:           infra,
		services:        services,
		opts:            opts,
		router:          chi.NewRouter(),
		logger:          logger,
		authRateLimiter: NewRateLimiter(opts.AuthPerMinute, time.Minute, opts.AuthBurst),
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Tug API", opts.Version)
	humaConfig.Info.Description = "Values, activities and progress for the Tug dashboard."
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

	s.registerRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, for tests and OpenAPI export.
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
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(authMiddleware(s.services.Auth))
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// registerRoutes registers every operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerValueRoutes()
	s.registerActivityRoutes()
	s.registerProgressRoutes()
	s.registerProfileRoutes()
	s.registerAccountRoutes()
	s.registerStravaRoutes()
}
