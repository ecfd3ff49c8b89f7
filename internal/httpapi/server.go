// Package httpapi exposes the range cache over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"calendar-cache/internal/calendar"
	"calendar-cache/internal/config"
	"calendar-cache/internal/service"
)

// Backend is the service surface the handlers need.
type Backend interface {
	Query(ctx context.Context, q calendar.RangeQuery) (*service.RangeResult, error)
	DeleteRange(ctx context.Context, start, end time.Time) (int, error)
	Stats(ctx context.Context) (service.Stats, error)
	Healthy(ctx context.Context) service.Health
}

// Server wires routes, middleware and the listener.
type Server struct {
	cfg     config.ServerConfig
	backend Backend
	version string
	logger  zerolog.Logger
	router  chi.Router
}

// New builds the HTTP server around backend.
func New(cfg config.ServerConfig, backend Backend, version string, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		backend: backend,
		version: version,
		logger:  logger.With().Str("component", "http").Logger(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.cfg.CORSOrigins))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Route("/events", func(r chi.Router) {
		r.Get("/", s.handleEvents)
		r.Get("/original", s.handleOriginalEvents)
	})
	r.Route("/database", func(r chi.Router) {
		r.Delete("/delete", s.handleDelete)
		r.Get("/info", s.handleInfo)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.cfg.Listen).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}
