package infra

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer wraps http.Server with logging and graceful shutdown helpers.
type HTTPServer struct {
	server *http.Server
	logger zerolog.Logger
}

// NewHTTPServer creates a configured HTTP server instance.
func NewHTTPServer(cfg *Config, handler http.Handler, logger zerolog.Logger) *HTTPServer {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}

	return &HTTPServer{server: srv, logger: logger}
}

// Start runs the HTTP server in the current goroutine. A shutdown initiated
// through Shutdown is not reported as an error.
func (s *HTTPServer) Start() error {
	if s.server == nil {
		return nil
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("http server listening")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}
