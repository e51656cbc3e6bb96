package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PhamBao-egn/BAOPHAM/internal/dispatch"
	"github.com/PhamBao-egn/BAOPHAM/internal/events"
	"github.com/PhamBao-egn/BAOPHAM/internal/history"
)

// Tracker reports the state of the goal being dispatched.
type Tracker interface {
	Status() dispatch.Status
}

// GoalHistory looks up journaled goals.
type GoalHistory interface {
	Get(ctx context.Context, goalID string) (*history.Entry, error)
	List(ctx context.Context, limit int) ([]*history.Entry, error)
}

// Config holds status server configuration
type Config struct {
	Listen string
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// History serves /goals when set.
	History GoalHistory
}

// Server is the read-only status server that runs alongside a goal.
type Server struct {
	config    Config
	tracker   Tracker
	events    *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new status server instance
func New(config Config, tracker Tracker, hub *events.Hub, logger *slog.Logger) *Server {
	return &Server{
		config:    config,
		tracker:   tracker,
		events:    hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Handler returns the routed handler without binding a listener.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the HTTP server and blocks until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.config.Listen,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("status server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("status server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	if s.events != nil {
		r.Get("/events", s.handleEvents)
	}
	if s.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.config.Metrics)
	}
	if s.config.History != nil {
		r.Get("/goals", s.handleListGoals)
		r.Get("/goals/{goalID}", s.handleGetGoal)
	}

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
