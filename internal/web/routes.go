package web

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/viewlulu/pouch-backend/internal/web/handlers"
	"github.com/viewlulu/pouch-backend/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	authHandler := handlers.NewAuthHandler(s.authService)
	cosmeticsHandler := handlers.NewCosmeticsHandler(s.groups, s.store, &s.config.Storage)
	photosHandler := handlers.NewPhotosHandler(s.photos, s.store, &s.config.Storage)
	detectHandler := handlers.NewDetectHandler(
		s.candidates,
		s.detector,
		time.Duration(s.config.Detect.TimeoutSeconds)*time.Second,
	)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// All other routes require a bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.authService))

			// Pouch catalog
			r.Post("/cosmetics/bulk", cosmeticsHandler.Create)
			r.Get("/cosmetics/me", cosmeticsHandler.List)
			r.Get("/cosmetics/{id}", cosmeticsHandler.Get)
			r.Patch("/cosmetics/{id}", cosmeticsHandler.Update)
			r.Delete("/cosmetics/{id}", cosmeticsHandler.Delete)

			// Personal photos
			r.Post("/photos", photosHandler.Upload)
			r.Get("/photos", photosHandler.List)

			// Detection
			r.Post("/cosmetics/detect", detectHandler.Detect)
		})
	})
}
