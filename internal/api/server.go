// Package api exposes the core over a small read-mostly JSON API, for UI
// layers that live out of process. Rendering, theming, and all other UI
// concerns stay on the far side of this boundary.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dan5py/mbox-viewer-sub001/internal/config"
	"github.com/dan5py/mbox-viewer-sub001/internal/rangeio"
	"github.com/dan5py/mbox-viewer-sub001/internal/store"
	"github.com/dan5py/mbox-viewer-sub001/internal/worker"
)

// Server wires the store and the search worker behind HTTP.
type Server struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger
	router chi.Router
	server *http.Server
}

// NewServer creates the API server.
func NewServer(cfg *config.Config, st *store.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		logger: logger,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/files", s.handleListFiles)
		r.Post("/files", s.handleOpenFile)
		r.Route("/files/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetFile)
			r.Put("/name", s.handleRename)
			r.Delete("/", s.handleRemove)
			r.Get("/messages", s.handleListMessages)
			r.Get("/messages/{index}", s.handleGetMessage)
			r.Get("/attachments", s.handleListAttachments)
			r.Get("/search", s.handleSearch)
		})
	})

	return r
}

// Start begins serving on the configured port. Blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start() error {
	addr := net.JoinHostPort("127.0.0.1", fmt.Sprintf("%d", s.cfg.Server.APIPort))
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("api listening", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// newSearchWorker builds a worker bound to the server's store.
func (s *Server) newSearchWorker() *worker.Worker {
	resolve := func(fileID string) (rangeio.RangeReader, error) {
		f, err := s.store.File(fileID)
		if err != nil {
			return nil, err
		}
		return f.Reader(), nil
	}
	return worker.New(resolve, worker.Options{
		ProgressStep: s.cfg.Search.ProgressStep,
		Logger:       s.logger,
	})
}
