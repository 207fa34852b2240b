// Package server exposes the services over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tiliavir/time-tracker-server/internal/service"
	"github.com/Tiliavir/time-tracker-server/internal/storage"
)

// Config holds the HTTP server configuration.
type Config struct {
	Addr        string
	CORSOrigins []string
}

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	svc        *service.Services
	store      storage.Store
	config     Config
	log        zerolog.Logger
}

// New creates a server for svc. store is only used for health checks.
func New(cfg Config, svc *service.Services, store storage.Store, log zerolog.Logger) *Server {
	return &Server{
		svc:    svc,
		store:  store,
		config: cfg,
		log:    log,
	}
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupRoutes(mux)
	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.log.Info().Str("addr", listener.Addr().String()).Msg("api server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return s.Shutdown(context.Background()) //nolint:contextcheck // parent context cancelled, use background for shutdown
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	s.log.Info().Msg("shutting down api server")
	return s.httpServer.Shutdown(shutdownCtx)
}
