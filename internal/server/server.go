// Package server provides the HTTP API for ayat.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/ayat/internal/config"
	"github.com/hyperjump/ayat/internal/keyword"
	"github.com/hyperjump/ayat/internal/models"
	"github.com/hyperjump/ayat/internal/storage"
	"github.com/hyperjump/ayat/internal/vector"
)

// Asker answers ask requests; implemented by rag.Service.
type Asker interface {
	Ask(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error)
}

// Server is the HTTP server for the ayat API.
type Server struct {
	asker    Asker
	store    storage.PassageStore
	vectors  vector.VectorIndex
	keywords *keyword.PassageIndex
	speller  *keyword.SpellChecker
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. keywords may be nil,
// in which case passage search answers 501.
func NewServer(
	asker Asker,
	store storage.PassageStore,
	vectors vector.VectorIndex,
	keywords *keyword.PassageIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		asker:    asker,
		store:    store,
		vectors:  vectors,
		keywords: keywords,
		config:   cfg,
		logger:   logger,
	}
	if keywords != nil {
		s.speller = keyword.NewSpellChecker(keywords)
	}
	return s
}

// Router builds the HTTP handler with middleware and routes.
func (s *Server) Router() http.Handler {
	timeout := time.Duration(s.config.Server.RequestTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/rag", s.handleAsk)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ask", s.handleAsk)
		r.Get("/status", s.handleStatus)
		r.Get("/passages", s.handleSearchPassages)
		r.Get("/passages/{row}", s.handleGetPassage)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
// http.ErrServerClosed after Stop is not reported as an error.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
