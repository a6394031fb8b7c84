// Package http hosts the API and metrics servers.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fedgate/fedgate/internal/observability/logger"
)

// Server wraps an http.Server with sane timeouts and graceful shutdown.
type Server struct {
	srv  *http.Server
	name string
}

// NewServer builds a named server for addr.
func NewServer(name, addr string, handler http.Handler) *Server {
	return &Server{
		name: name,
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named(s.name)

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", logger.String("addr", s.srv.Addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	if err := s.srv.Shutdown(shutCtx); err != nil {
		return err
	}
	return nil
}
