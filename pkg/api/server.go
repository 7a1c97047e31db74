package api

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/recordkit/recordkit/pkg/httputil"
	"github.com/recordkit/recordkit/pkg/lifecycle"
	"github.com/recordkit/recordkit/pkg/middleware"
	"github.com/recordkit/recordkit/pkg/observability"
)

// Server represents our API server
type Server struct {
	service  *lifecycle.Service
	router   *mux.Router
	identity middleware.IdentityProvider
	logger   *observability.Logger
}

// Options configures optional server collaborators.
type Options struct {
	// Identity resolves the acting user; defaults to trusted-header lookup.
	Identity middleware.IdentityProvider

	Logger *observability.Logger

	// MetricsHandler, when non-nil, is served at /metrics.
	MetricsHandler http.Handler

	// AllowedOrigins enables CORS for the given origins.
	AllowedOrigins []string

	// MaxBodyBytes caps request body size; zero means 1 MiB.
	MaxBodyBytes int64
}

// NewServer creates a new API server around the lifecycle service.
func NewServer(service *lifecycle.Service, opts Options) *Server {
	if opts.Identity == nil {
		opts.Identity = middleware.HeaderIdentity{}
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		service:  service,
		router:   mux.NewRouter(),
		identity: opts.Identity,
		logger:   opts.Logger,
	}
	s.setupRoutes(opts)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(opts Options) {
	chain := []mux.MiddlewareFunc{
		middleware.RequestIDMiddleware,
		httputil.RecoveryMiddleware(s.logger),
		httputil.LoggingMiddleware(s.logger),
		httputil.MaxBytesMiddleware(opts.MaxBodyBytes),
		httputil.ContentTypeMiddleware,
		middleware.IdentityMiddleware(s.identity),
	}
	if len(opts.AllowedOrigins) > 0 {
		chain = append([]mux.MiddlewareFunc{httputil.CORSMiddleware(opts.AllowedOrigins)}, chain...)
	}
	s.router.Use(chain...)

	// Record routes
	s.router.HandleFunc("/api/v1/records", s.createRecord).Methods("POST")
	s.router.HandleFunc("/api/v1/records", s.listRecords).Methods("GET")
	s.router.HandleFunc("/api/v1/records/{id}", s.getRecord).Methods("GET")
	s.router.HandleFunc("/api/v1/records/{id}", s.updateRecord).Methods("PUT")
	s.router.HandleFunc("/api/v1/records/{id}", s.deleteRecord).Methods("DELETE")

	// Operational routes
	s.router.HandleFunc("/health", s.healthCheck).Methods("GET")
	if opts.MetricsHandler != nil {
		s.router.Handle("/metrics", opts.MetricsHandler).Methods("GET")
	}
}

// Router returns the configured router for serving.
func (s *Server) Router() http.Handler {
	return s.router
}
