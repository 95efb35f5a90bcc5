// Package server exposes the risk engine over a small JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/m-mizutani/ctxlog"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	*http.Server
	router chi.Router
}

// NewServer creates the HTTP server listening on cfg.Listen.
// src may be nil, in which case the backend-backed routes answer 503.
func NewServer(ctx context.Context, cfg *contract.Config, src contract.DataSource, mgr contract.CacheManager) *Server {
	router := chi.NewRouter()
	h := &handler{baseCfg: cfg, src: src, mgr: mgr}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/risk", h.handleRisk)
		r.Post("/oos", h.handleOOS)
		r.Post("/histogram", h.handleHistogram)
		r.Get("/tests/risk", h.handleTestRisks)
	})

	return &Server{
		Server: &http.Server{
			Addr:              cfg.Listen,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router: router,
	}
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logger := ctxlog.From(ctx)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", s.Addr)
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}
	logger.Info("Server shutdown complete")
	return nil
}
