// Package web provides the read-oriented HTTP API over import jobs and
// catalog aggregates, plus the endpoint that triggers a run. Storefront and
// admin systems only ever read through this surface; nothing here writes
// pricing fields.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stonelake/gemfeed/internal/config"
	"github.com/stonelake/gemfeed/internal/importer"
	"github.com/stonelake/gemfeed/internal/observability"
	"github.com/stonelake/gemfeed/internal/store"
	"github.com/stonelake/gemfeed/internal/web/middleware"
)

// Server is the HTTP server for the job and catalog query API.
type Server struct {
	store  *store.Store
	runner *importer.Runner
	router *chi.Mux
	server *http.Server
}

// NewServer creates a Server with routes and middleware configured.
func NewServer(st *store.Store, runner *importer.Runner, cfg *config.Config) *Server {
	s := &Server{
		store:  st,
		runner: runner,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", observability.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/jobs/latest", s.handleLatestJob)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Post("/imports/{type}", s.handleTriggerImport)
		r.Get("/catalog/stats", s.handleCatalogStats)
	})
}

// ListenAndServe starts serving and blocks until the listener fails or the
// server shuts down.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
