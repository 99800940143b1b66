package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"transitscan/internal/config"
	"transitscan/internal/handler"
	"transitscan/internal/timetable"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP server for the journey planner.
type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	logger *slog.Logger
	ready  chan struct{} // closed once a timetable is loaded
}

// New creates a new Server with all routes registered.
func New(cfg *config.Config, tt *timetable.DB, h *handler.Handler, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	ready := make(chan struct{})
	if _, _, ok := tt.Latest().TimeSpan(); ok {
		close(ready)
	}

	s := &Server{mux: mux, cfg: cfg, logger: logger, ready: ready}

	// API
	mux.HandleFunc("GET /api/journeys/earliest", h.EarliestArrival)
	mux.HandleFunc("GET /api/journeys/latest", h.LatestDeparture)
	mux.HandleFunc("GET /api/journeys/profiles", h.Profiles)
	mux.HandleFunc("GET /api/isochrone", h.Isochrone)
	mux.HandleFunc("GET /api/stops", h.NearbyStops)

	// Pages
	mux.HandleFunc("GET /plan", h.Plan)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/plan", http.StatusFound)
	})

	mux.HandleFunc("GET /healthz", h.Health)

	return s
}

// SetReady signals that a timetable is loaded and planning requests can be
// served.
func (s *Server) SetReady() {
	select {
	case <-s.ready:
		// already closed
	default:
		close(s.ready)
	}
}

// Handler returns the routes wrapped in middleware.
func (s *Server) Handler() http.Handler {
	return withMiddleware(s.mux, s.logger, s.ready)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
