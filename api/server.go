package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"siteqa/pkg/metrics"
	"siteqa/pkg/vectorstore"
	"siteqa/retrieval"
)

// QAService is the part of the retrieval engine the API drives.
type QAService interface {
	Indexing(ctx context.Context, rawURL string, maxPages int) (int, error)
	Ask(ctx context.Context, question string, turns []retrieval.Turn) (*retrieval.Result, error)
	ClearIndex(ctx context.Context) ([]string, error)
	Summary(ctx context.Context) (*vectorstore.Metadata, error)
}

type Options struct {
	Addr            string
	DefaultMaxPages int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// Server represents the API server
type Server struct {
	service  QAService
	sessions *SessionStore
	metrics  *metrics.Metrics
	logger   *zap.Logger
	opts     Options
}

// NewServer creates a new API server
func NewServer(service QAService, m *metrics.Metrics, logger *zap.Logger, opts Options) *Server {
	if opts.DefaultMaxPages <= 0 {
		opts.DefaultMaxPages = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		service:  service,
		sessions: NewSessionStore(),
		metrics:  m,
		logger:   logger,
		opts:     opts,
	}
}

func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Routes returns the handler with every endpoint registered.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	routes := map[string]http.HandlerFunc{
		"POST /index":             s.handleIndex,
		"GET /index":              s.handleSummary,
		"DELETE /index":           s.handleClear,
		"POST /sessions":          s.handleCreateSession,
		"GET /sessions/{id}":      s.handleGetSession,
		"DELETE /sessions/{id}":   s.handleDeleteSession,
		"POST /sessions/{id}/ask": s.handleAsk,
		"GET /health":             s.handleHealth,
	}
	for pattern, h := range routes {
		mux.Handle(pattern, s.metrics.Middleware(pattern, h))
	}
	mux.Handle("GET /metrics", s.metrics.Handler())
	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down api server")
		return srv.Shutdown(shutdownCtx)
	}
}
