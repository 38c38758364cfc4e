// Package admin serves the operational endpoints of the watch daemon.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	xlog "github.com/nicholasgasior/fileconv/internal/log"
)

// HealthFunc reports whether the daemon is ready. A nil HealthFunc is always healthy.
type HealthFunc func() error

// NewRouter returns a router serving /healthz and /metrics.
func NewRouter(health HealthFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		status, code := "ok", http.StatusOK
		var reason string
		if health != nil {
			if err := health(); err != nil {
				status, code, reason = "unavailable", http.StatusServiceUnavailable, err.Error()
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status, "reason": reason})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Server runs the admin router until its context is canceled.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer creates a Server listening on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: xlog.WithComponent("admin"),
	}
}

// Serve listens on ln and blocks until ctx is canceled or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("admin server listening")
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("admin shutdown: %w", err)
		}
		<-errCh
		return nil
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("admin listen: %w", err)
	}
	return s.Serve(ctx, ln)
}
