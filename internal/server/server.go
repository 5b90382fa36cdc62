// Package server provides the HTTP API for AskTheBook.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/askthebook/internal/config"
	"github.com/hyperjump/askthebook/internal/docstore"
	"github.com/hyperjump/askthebook/internal/extract"
	"github.com/hyperjump/askthebook/internal/tutor"
	"go.uber.org/zap"
)

// Server is the HTTP server for the AskTheBook API.
type Server struct {
	store     *docstore.Store
	extractor *extract.Extractor
	tutor     *tutor.Service
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	store *docstore.Store,
	extractor *extract.Extractor,
	tut *tutor.Service,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:     store,
		extractor: extractor,
		tutor:     tut,
		config:    cfg,
		logger:    logger,
	}
}

// router builds the chi router with all API routes.
func (s *Server) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Generation can be slow on long contexts; the timeout bounds the whole
	// request including both remote calls.
	r.Use(middleware.Timeout(3 * time.Minute))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/documents", s.handleListDocuments)
	r.Post("/api/upload", s.handleUpload)
	r.Delete("/api/documents/{filename}", s.handleDeleteDocument)
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/exam", s.handleExam)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
