// Package server provides the HTTP API for kura.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kura/internal/config"
	"github.com/hyperjump/kura/internal/indexer"
	"github.com/hyperjump/kura/internal/keyword"
	"github.com/hyperjump/kura/internal/models"
	"github.com/hyperjump/kura/internal/search"
	"go.uber.org/zap"
)

// KnowledgeBase is the lifecycle surface the HTTP API needs.
type KnowledgeBase interface {
	ReloadFromSource(ctx context.Context) (*indexer.Generation, error)
	Stats() models.Stats
	Lookup(ctx context.Context, query string, limit int, opts *keyword.SearchOptions) ([]models.ChunkHit, error)
}

// Server is the HTTP server for the kura API.
type Server struct {
	engine *search.Engine
	kb     KnowledgeBase
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(engine *search.Engine, kb KnowledgeBase, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine: engine,
		kb:     kb,
		config: cfg,
		logger: logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", s.handleQuery)
		r.Post("/chat", s.handleChat)
		r.Post("/knowledge-base/reload", s.handleReload)
		r.Get("/knowledge-base/stats", s.handleStats)
		r.Get("/knowledge-base/chunks", s.handleChunks)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
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
