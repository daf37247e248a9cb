// Package api exposes the engine operations over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/engine"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// Options carries the server's collaborators. Repository, Cache and Bus may
// be nil; Engine may not.
type Options struct {
	Repository domain.Repository
	Cache      domain.Cache
	Bus        domain.EventBus
	Engine     *engine.Engine
	ResultTTL  time.Duration
	Version    string
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, opts Options) *Server {
	handler := NewHandler(opts)
	handler.maxBody = cfg.MaxBodyBytes
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware())       // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Snapshot source
		r.Put("/snapshot", handler.PutSnapshot)
		r.Get("/snapshot/summary", handler.SnapshotSummary)

		// Engine operations
		r.Post("/allocations", handler.Allocations)
		r.Post("/risk", handler.Risk)
		r.Post("/reorders", handler.Reorders)
		r.Post("/channel-splits", handler.ChannelSplits)
		r.Post("/scenarios", handler.Scenarios)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
