// Package server provides the HTTP API for Sera.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/seradocs/sera/internal/config"
	"github.com/seradocs/sera/internal/ingest"
	"github.com/seradocs/sera/internal/query"
	"github.com/seradocs/sera/internal/store"
)

// Server is the HTTP server for the Sera API.
type Server struct {
	store     *store.Store
	ingestor  *ingest.Ingestor
	query     *query.Service
	config    *config.ServerConfig
	maxUpload int64
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. maxUpload is the
// upload size limit in bytes; requests beyond it are rejected early.
func NewServer(
	st *store.Store,
	ingestor *ingest.Ingestor,
	querySvc *query.Service,
	cfg *config.ServerConfig,
	maxUpload int64,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:     st,
		ingestor:  ingestor,
		query:     querySvc,
		config:    cfg,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))
	if len(s.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Post("/api/upload", s.handleUpload)
	r.Post("/api/query", s.handleQuery)
	r.Delete("/api/clear", s.handleClear)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/documents", s.handleListDocuments)
	r.Delete("/api/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/messages", s.handleListMessages)
	r.Delete("/api/messages", s.handleClearMessages)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
