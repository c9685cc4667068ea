// Package web wires the HTTP API: router, middleware stack, and handlers.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/viewlulu/pouch-backend/internal/auth"
	"github.com/viewlulu/pouch-backend/internal/catalog"
	"github.com/viewlulu/pouch-backend/internal/config"
	"github.com/viewlulu/pouch-backend/internal/detect"
	"github.com/viewlulu/pouch-backend/internal/storage"
	"github.com/viewlulu/pouch-backend/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server

	authService *auth.Service
	groups      catalog.GroupRepository
	photos      catalog.PhotoRepository
	candidates  catalog.CandidateSource
	store       storage.ObjectStore
	detector    detect.Detector
}

// NewServer creates a new web server
func NewServer(
	cfg *config.Config,
	authService *auth.Service,
	groups catalog.GroupRepository,
	photos catalog.PhotoRepository,
	candidates catalog.CandidateSource,
	store storage.ObjectStore,
	detector detect.Detector,
) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:      cfg,
		router:      r,
		authService: authService,
		groups:      groups,
		photos:      photos,
		candidates:  candidates,
		store:       store,
		detector:    detector,
	}

	// The router timeout must stay above the detection budget so the
	// detection handler, not the middleware, decides when to give up.
	detectBudget := time.Duration(cfg.Detect.TimeoutSeconds) * time.Second

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(detectBudget + 30*time.Second))
	r.Use(middleware.CORS())

	// Set up routes
	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: detectBudget + time.Minute, // long timeout for uploads and detection
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
