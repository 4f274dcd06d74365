// Package api provides the HTTP surface of the bot.
//
// Endpoints:
//
//	POST /api/webhook          →  inbound Chatwoot webhook (reply pipeline)
//	GET  /api/webhook          →  webhook reachability probe
//	GET  /health               →  liveness probe
//	GET  /ready                →  readiness probe (vector store reachable)
//	GET  /api/collection       →  collection stats
//	POST /api/collection/reset →  drop and recreate the collection
//	GET  /api/documents        →  browse documents (limit/offset)
//	POST /api/documents        →  add a document
//	GET  /api/documents/{id}   →  fetch one document
//	DELETE /api/documents/{id} →  delete one document
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery and request logging
//   - webhook.go: inbound webhook endpoint
//   - health.go: liveness/readiness probes
//   - admin.go: collection and document administration
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/faqbase/faqbot/internal/knowledge"
	"github.com/faqbase/faqbot/internal/log"
	"github.com/faqbase/faqbot/internal/pipeline"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3000"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the bot.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	// development disables process termination on panic.
	development bool

	webhook *WebhookHandler
	health  *HealthHandler
	admin   *AdminHandler
}

// NewServer creates a server with all routes registered.
func NewServer(p *pipeline.Pipeline, store *knowledge.Store, development bool, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	mux := http.NewServeMux()

	s := &Server{
		mux:         mux,
		logger:      logger,
		development: development,
		webhook:     NewWebhookHandler(p, logger),
		health:      NewHealthHandler(store, logger),
		admin:       NewAdminHandler(store, logger),
	}

	s.webhook.RegisterRoutes(mux)
	s.health.RegisterRoutes(mux)
	s.admin.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger, s.development),
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
