// Package web serves the parkspot HTTP API.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ironsheep/parkspot-mcp/internal/pipeline"
	"github.com/ironsheep/parkspot-mcp/internal/web/handlers"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

// Server represents the web server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
}

// NewServer creates a new web server
func NewServer(runner *pipeline.Runner, src zones.Source, host string, port int) *Server {
	r := chi.NewRouter()

	s := &Server{router: r}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))

	s.setupRoutes(runner, src)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute, // detection on large uploads
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(runner *pipeline.Runner, src zones.Source) {
	lots := handlers.NewLotsHandler(runner, src)
	health := handlers.NewHealthHandler(runner.Detector)

	s.router.Get("/api/v1/health", health.Check)
	s.router.Get("/api/v1/lots", lots.List)

	s.router.Route("/api/v1/lots/{lotID}", func(r chi.Router) {
		r.Get("/runs", lots.Runs)
		r.Get("/zones", lots.Zones)
		r.Post("/detect", lots.Detect)
		r.Get("/occupancy", lots.Occupancy)
		r.Get("/occupancy.csv", lots.OccupancyCSV)
	})
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
