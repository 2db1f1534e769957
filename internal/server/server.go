package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ternarybob/thesis/internal/app"
	"github.com/ternarybob/thesis/internal/common"
)

// Server serves the report API for an App.
type Server struct {
	app             *app.App
	http            *http.Server
	shutdownTimeout time.Duration
}

// New builds the server from application config. Nothing listens until Run
// or Serve is called.
func New(application *app.App) *Server {
	cfg := application.Config.Server

	s := &Server{
		app:             application,
		shutdownTimeout: common.ParseDuration(cfg.ShutdownTimeout, 10*time.Second),
	}
	s.http = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      s.withMiddleware(s.setupRoutes()),
		ReadTimeout:  common.ParseDuration(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: common.ParseDuration(cfg.WriteTimeout, 30*time.Second),
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Run listens on the configured address and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends, then drains in-flight
// requests for at most the shutdown timeout. A nil return means a clean stop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	common.SafeGo(s.app.Logger, "http-server", func() {
		serveErr <- s.http.Serve(ln)
	})

	s.app.Logger.Info().
		Str("address", ln.Addr().String()).
		Msg("HTTP server listening")

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
