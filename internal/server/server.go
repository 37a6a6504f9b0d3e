package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"influx_events/internal/config"
)

// Server wraps an *http.Server to provide start/shutdown lifecycle.
type Server struct {
	httpServer *http.Server
	timeouts   config.HTTPConfig
}

const (
	maxHeaderBytes = 1 << 20 // 1 MB

	defaultReadHeaderTimeout = 10 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// New returns a server using the timeouts in cfg. Zero values fall back to defaults.
func New(cfg config.HTTPConfig) *Server {
	return &Server{timeouts: cfg}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// newHTTPServer builds a configured *http.Server for the given address and handler.
func (s *Server) newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: orDefault(s.timeouts.ReadHeaderTimeout, defaultReadHeaderTimeout),
		WriteTimeout:      orDefault(s.timeouts.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       orDefault(s.timeouts.IdleTimeout, defaultIdleTimeout),
	}
}

// normalizeAddr accepts "8000" or ":8000".
func normalizeAddr(port string) string {
	if port == "" {
		return ""
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Run starts the HTTP server on the given port. It returns nil after Shutdown.
func (s *Server) Run(port string, handler http.Handler) error {
	s.httpServer = s.newHTTPServer(normalizeAddr(port), handler)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, allowing in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
