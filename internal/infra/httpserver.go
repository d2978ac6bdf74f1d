package infra

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// HTTPServer wraps http.Server with graceful startup and shutdown helpers.
type HTTPServer struct {
	server *http.Server
	grace  time.Duration
}

func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}
	grace := cfg.GenerationDeadline + 5*time.Second
	return &HTTPServer{server: srv, grace: grace}
}

func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

// Start runs the HTTP server in the current goroutine. A clean shutdown
// returns nil.
func (s *HTTPServer) Start() error {
	if s.server == nil {
		return nil
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// one generation deadline.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
