// Package api exposes ingestion and retrieval over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/search"
	"github.com/poiesic/scriptorium/storage"
)

const (
	DefaultAddr           = ":8080"
	DefaultRequestTimeout = 60 * time.Second
)

// Ingester accepts uploads and schedules their processing.
type Ingester interface {
	Ingest(ctx context.Context, fileName string, buf []byte, opts core.ProcessingOptions) (*core.Document, error)
	Submit(docID core.ID, opts core.ProcessingOptions, onDone func(error)) error
}

// Searcher answers queries.
type Searcher interface {
	Search(ctx context.Context, query string, opts search.SearchOptions) (*search.Response, error)
	HybridSearch(ctx context.Context, query string, opts search.HybridOptions) (*search.Response, error)
}

// Dependencies are the services the HTTP handlers call.
type Dependencies struct {
	Ingester  Ingester
	Searcher  Searcher
	Documents storage.DocumentStore
	Jobs      storage.JobStore

	// Options are the processing defaults for uploads. Query parameters may override them.
	Options core.ProcessingOptions
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	deps           Dependencies
	addr           string
	origins        []string
	requestTimeout time.Duration
	logger         *slog.Logger
	router         chi.Router
	httpServer     *http.Server
}

// Option configures a Server.
type Option func(*Server) error

// WithAddr sets the listen address.
// Default is ":8080".
func WithAddr(addr string) Option {
	return func(s *Server) error {
		if addr != "" {
			s.addr = addr
		}
		return nil
	}
}

// WithCORSOrigins sets the allowed CORS origins.
// Default is "*".
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) error {
		if len(origins) > 0 {
			s.origins = origins
		}
		return nil
	}
}

// WithRequestTimeout bounds every request.
// Default is 60s.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		if timeout > 0 {
			s.requestTimeout = timeout
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewServer builds and wires all routes.
func NewServer(deps Dependencies, opts ...Option) (*Server, error) {
	switch {
	case deps.Ingester == nil:
		return nil, ErrIngesterRequired
	case deps.Searcher == nil:
		return nil, ErrSearcherRequired
	case deps.Documents == nil:
		return nil, ErrDocumentStoreRequired
	case deps.Jobs == nil:
		return nil, ErrJobStoreRequired
	}
	if deps.Options.ChunkSize == 0 {
		deps.Options = core.DefaultProcessingOptions()
	}

	s := &Server{
		deps:           deps,
		addr:           DefaultAddr,
		origins:        []string{"*"},
		requestTimeout: DefaultRequestTimeout,
		logger:         slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/documents", s.uploadDocument)
		api.Get("/documents", s.listDocuments)
		api.Get("/documents/{id}", s.getDocument)
		api.Get("/documents/{id}/job", s.getJob)
		api.Get("/search", s.search)
		api.Get("/search/hybrid", s.hybridSearch)
	})
	return r
}

// Handler returns the router, for tests and embedding in other servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
